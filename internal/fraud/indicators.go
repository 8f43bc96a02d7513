package fraud

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// check is a single base heuristic. Checks never fail: a missing field means
// the signal is simply not raised.
type check func(p *Policy, user UserSnapshot) (detected bool, description string)

var baseChecks = map[IndicatorType]check{
	IndicatorDisposableEmail:     checkDisposableEmail,
	IndicatorSuspiciousName:      checkSuspiciousName,
	IndicatorAdminImpersonation:  checkAdminImpersonation,
	IndicatorInvalidPhone:        checkInvalidPhone,
	IndicatorInconsistentAddress: checkInconsistentAddress,
}

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	phoneCleaner = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

	// validator instances cache struct metadata and are safe for concurrent use
	validate = validator.New()

	placeholderNames = tokenSet("test", "fake", "demo", "sample", "example", "null", "undefined", "anonymous", "asdf", "qwerty", "xxx")

	privilegedNames = tokenSet("admin", "administrator", "administrateur", "root", "system", "sysadmin", "superuser", "superadmin", "moderator", "moderateur", "webmaster")

	placeholderAddressTokens = tokenSet("test", "fake", "none", "unknown", "xxx", "asdf", "placeholder", "nowhere", "sample", "example")

	placeholderAddresses = tokenSet("na", "none", "test", "fake", "unknown", "aucune", "neant")
)

// EvaluateIndicators runs every base check, then the combined risk check, and
// returns one indicator per type in evaluation order.
func EvaluateIndicators(p *Policy, user UserSnapshot) []FraudIndicator {
	indicators := make([]FraudIndicator, 0, len(baseIndicatorTypes)+1)

	detected := 0
	for _, t := range baseIndicatorTypes {
		ok, desc := baseChecks[t](p, user)
		if ok {
			detected++
		}
		indicators = append(indicators, FraudIndicator{
			Type:        t,
			Weight:      p.Weight(t),
			Detected:    ok,
			Description: desc,
		})
	}

	return append(indicators, combinedRisk(p, detected))
}

func combinedRisk(p *Policy, detected int) FraudIndicator {
	ind := FraudIndicator{
		Type:   IndicatorCombinedRisk,
		Weight: p.Weight(IndicatorCombinedRisk),
	}
	if detected >= p.combinedMin {
		ind.Detected = true
		ind.Description = fmt.Sprintf("%d base indicators detected (combined threshold %d)", detected, p.combinedMin)
	} else {
		ind.Description = fmt.Sprintf("%d base indicators detected, below combined threshold %d", detected, p.combinedMin)
	}
	return ind
}

func checkDisposableEmail(p *Policy, user UserSnapshot) (bool, string) {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" {
		return false, "no email provided"
	}

	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return false, "email has no domain"
	}

	domain := email[at+1:]
	if p.IsDisposableDomain(domain) {
		return true, fmt.Sprintf("disposable email domain %s", domain)
	}
	return false, "email domain not in disposable registry"
}

func checkSuspiciousName(_ *Policy, user UserSnapshot) (bool, string) {
	for _, name := range []string{user.Name, user.Surname} {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		for _, tok := range tokens(name) {
			if _, ok := placeholderNames[tok]; ok {
				return true, fmt.Sprintf("placeholder name token %q", tok)
			}
		}
		if strings.IndexFunc(name, unicode.IsDigit) >= 0 {
			return true, "name contains digits"
		}
		if isRepeatedString(strings.ToLower(name)) {
			return true, fmt.Sprintf("implausible repeated name %q", name)
		}
	}
	return false, "name and surname look plausible"
}

func checkAdminImpersonation(_ *Policy, user UserSnapshot) (bool, string) {
	if user.AccountType == AccountTypeAdministrator {
		return true, "self-registration requested an administrator account"
	}

	fields := []string{user.Name, user.Surname, emailLocalPart(user.Email)}
	for _, field := range fields {
		for _, tok := range tokens(field) {
			if _, ok := privilegedNames[tok]; ok || strings.HasPrefix(tok, "admin") {
				return true, fmt.Sprintf("privileged role token %q in identity", tok)
			}
		}
	}
	return false, "no privileged role tokens"
}

func checkInvalidPhone(_ *Policy, user UserSnapshot) (bool, string) {
	phone := phoneCleaner.Replace(strings.TrimSpace(user.Phone))
	if phone == "" {
		return false, "no phone provided"
	}

	if !phonePattern.MatchString(phone) {
		return true, "phone format invalid"
	}
	if strings.HasPrefix(phone, "+") {
		if phone[1] == '0' || validate.Var(phone, "e164") != nil {
			return true, "phone country code invalid"
		}
	}

	digits := strings.TrimPrefix(phone, "+")
	if isSingleDigitRepeated(digits) {
		return true, "phone is a single repeated digit"
	}
	if isSequentialDigits(digits) {
		return true, "phone digits are trivially sequential"
	}
	return false, "phone format valid"
}

func checkInconsistentAddress(p *Policy, user UserSnapshot) (bool, string) {
	address := strings.TrimSpace(user.Address)
	if address == "" {
		return false, "no address provided"
	}

	lower := strings.ToLower(address)
	if _, ok := placeholderAddresses[compact(lower)]; ok {
		return true, "address is a placeholder"
	}
	if utf8.RuneCountInString(address) < p.minAddressLength {
		return true, fmt.Sprintf("address shorter than %d characters", p.minAddressLength)
	}
	for _, tok := range tokens(lower) {
		if _, ok := placeholderAddressTokens[tok]; ok {
			return true, fmt.Sprintf("placeholder address token %q", tok)
		}
	}
	return false, "address looks plausible"
}

func tokenSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// tokens splits s into lower-cased alphanumeric words.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func compact(s string) string {
	return strings.Join(tokens(s), "")
}

func emailLocalPart(email string) string {
	email = strings.TrimSpace(email)
	if at := strings.LastIndexByte(email, '@'); at >= 0 {
		return email[:at]
	}
	return ""
}

// isRepeatedString matches "aa", "xxxx" or a two-letter unit repeated at least
// three times ("ababab"). Common doubled names such as "Lili" pass.
func isRepeatedString(s string) bool {
	r := []rune(compact(s))
	n := len(r)
	if n < 2 {
		return false
	}
	for _, rule := range []struct{ unit, minRepeats int }{{1, 2}, {2, 3}} {
		unit := rule.unit
		if n%unit != 0 || n/unit < rule.minRepeats {
			continue
		}
		repeated := true
		for i := unit; i < n; i++ {
			if r[i] != r[i%unit] {
				repeated = false
				break
			}
		}
		if repeated {
			return true
		}
	}
	return false
}

func isSingleDigitRepeated(digits string) bool {
	if len(digits) < 2 {
		return false
	}
	return strings.Count(digits, digits[:1]) == len(digits)
}

// isSequentialDigits matches runs like 0123456789 or 9876543210, wrapping at 9.
func isSequentialDigits(digits string) bool {
	if len(digits) < 3 {
		return false
	}
	step := (int(digits[1]) - int(digits[0]) + 10) % 10
	if step != 1 && step != 9 {
		return false
	}
	for i := 2; i < len(digits); i++ {
		if (int(digits[i])-int(digits[i-1])+10)%10 != step {
			return false
		}
	}
	return true
}
