package fraud

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richxcame/carbon-ledger/pkg/config"
)

// Risk band lower bounds, inclusive.
const (
	MediumRiskMinScore   = 25.0
	HighRiskMinScore     = 50.0
	CriticalRiskMinScore = 75.0
)

// Policy is the scoring configuration shared by every analysis. It is built
// once at startup and is read-only afterwards, so concurrent analyses may use
// it without synchronisation.
type Policy struct {
	weights          map[IndicatorType]float64
	threshold        float64
	combinedMin      int
	minAddressLength int
	disposable       map[string]struct{}
}

// NewPolicy validates cfg and builds a policy. extraDomains are added to the
// built-in disposable email registry.
func NewPolicy(cfg config.FraudConfig, extraDomains ...string) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Policy{
		weights: map[IndicatorType]float64{
			IndicatorDisposableEmail:     cfg.WeightDisposableEmail,
			IndicatorSuspiciousName:      cfg.WeightSuspiciousName,
			IndicatorAdminImpersonation:  cfg.WeightAdminImpersonation,
			IndicatorInvalidPhone:        cfg.WeightInvalidPhone,
			IndicatorInconsistentAddress: cfg.WeightInconsistentAddress,
			IndicatorCombinedRisk:        cfg.WeightCombinedRisk,
		},
		threshold:        cfg.Threshold,
		combinedMin:      cfg.CombinedMinIndicators,
		minAddressLength: cfg.MinAddressLength,
		disposable:       make(map[string]struct{}, len(defaultDisposableDomains)+len(extraDomains)),
	}

	for _, d := range defaultDisposableDomains {
		p.disposable[d] = struct{}{}
	}
	for _, d := range extraDomains {
		if d = normalizeDomain(d); d != "" {
			p.disposable[d] = struct{}{}
		}
	}

	return p, nil
}

// DefaultPolicy returns the policy built from the documented defaults
func DefaultPolicy() *Policy {
	p, err := NewPolicy(config.DefaultFraudConfig())
	if err != nil {
		panic(fmt.Sprintf("default fraud policy is invalid: %v", err))
	}
	return p
}

// PolicyFromConfig builds the policy for cfg, loading the optional domains file.
func PolicyFromConfig(cfg config.FraudConfig) (*Policy, error) {
	var extra []string
	if cfg.DisposableDomainsFile != "" {
		domains, err := LoadDisposableDomainsFile(cfg.DisposableDomainsFile)
		if err != nil {
			return nil, err
		}
		extra = domains
	}
	return NewPolicy(cfg, extra...)
}

// Weight returns the configured weight of an indicator type
func (p *Policy) Weight(t IndicatorType) float64 {
	return p.weights[t]
}

// FraudThreshold returns the score at and above which a result is fraudulent
func (p *Policy) FraudThreshold() float64 {
	return p.threshold
}

// IsDisposableDomain reports whether domain, or any parent domain, belongs to
// a known throwaway mail provider.
func (p *Policy) IsDisposableDomain(domain string) bool {
	domain = normalizeDomain(domain)
	if domain == "" {
		return false
	}

	for d := domain; d != ""; {
		if _, ok := p.disposable[d]; ok {
			return true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}

	for _, kw := range disposableKeywords {
		if strings.Contains(domain, kw) {
			return true
		}
	}
	return false
}

// LoadDisposableDomains reads one domain per line. Blank lines and lines
// starting with # are ignored.
func LoadDisposableDomains(r io.Reader) ([]string, error) {
	var domains []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, normalizeDomain(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read disposable domains: %w", err)
	}
	return domains, nil
}

// LoadDisposableDomainsFile reads a domain list from path
func LoadDisposableDomainsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open disposable domains file: %w", err)
	}
	defer f.Close()
	return LoadDisposableDomains(f)
}

func normalizeDomain(d string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
}
