package fraud

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanUser() UserSnapshot {
	return UserSnapshot{
		UserID:      1,
		Name:        "Jean",
		Surname:     "Dupont",
		Email:       "jean.dupont@gmail.com",
		Phone:       "+33612345678",
		Address:     "123 Rue de la Paix, Paris",
		AccountType: AccountTypeInvestor,
	}
}

func detectedTypes(indicators []FraudIndicator) []IndicatorType {
	var types []IndicatorType
	for _, ind := range indicators {
		if ind.Detected {
			types = append(types, ind.Type)
		}
	}
	return types
}

func indicatorOf(t *testing.T, indicators []FraudIndicator, typ IndicatorType) FraudIndicator {
	t.Helper()
	for _, ind := range indicators {
		if ind.Type == typ {
			return ind
		}
	}
	t.Fatalf("indicator %s missing", typ)
	return FraudIndicator{}
}

func TestEvaluateIndicatorsOrderAndCompleteness(t *testing.T) {
	indicators := EvaluateIndicators(DefaultPolicy(), cleanUser())

	require.Len(t, indicators, 6)
	for i, typ := range IndicatorTypes() {
		assert.Equal(t, typ, indicators[i].Type)
		assert.NotEmpty(t, indicators[i].Description)
	}
	assert.Equal(t, IndicatorCombinedRisk, indicators[len(indicators)-1].Type)
}

func TestEvaluateIndicatorsWeightsComeFromPolicy(t *testing.T) {
	indicators := EvaluateIndicators(DefaultPolicy(), UserSnapshot{})

	want := map[IndicatorType]float64{
		IndicatorDisposableEmail:     0.25,
		IndicatorSuspiciousName:      0.20,
		IndicatorAdminImpersonation:  0.30,
		IndicatorInvalidPhone:        0.15,
		IndicatorInconsistentAddress: 0.10,
		IndicatorCombinedRisk:        0.15,
	}
	for _, ind := range indicators {
		assert.Equal(t, want[ind.Type], ind.Weight, ind.Type)
	}
}

func TestEmptySnapshotFailsOpen(t *testing.T) {
	indicators := EvaluateIndicators(DefaultPolicy(), UserSnapshot{UserID: 9})

	require.Len(t, indicators, 6)
	assert.Empty(t, detectedTypes(indicators))
}

func TestDisposableEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"marie.martin@yopmail.com", true},
		{"MARIE@TempMail.COM", true},
		{"user@mail.tempmail.com", true},
		{"user@throwaway-inbox.org", true},
		{"jean.dupont@gmail.com", false},
		{"contact@carbon-ledger.fr", false},
		{"no-at-sign", false},
		{"trailing@", false},
		{"", false},
	}

	p := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got, desc := checkDisposableEmail(p, UserSnapshot{Email: tt.email})
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, desc)
		})
	}
}

func TestSuspiciousName(t *testing.T) {
	tests := []struct {
		name, surname string
		want          bool
	}{
		{"Jean", "Dupont", false},
		{"Lili", "Moreau", false},
		{"Marie-Claire", "N'Diaye", false},
		{"Test", "Dupont", true},
		{"Jean", "FAKE", true},
		{"demo user", "", true},
		{"Jean2", "Dupont", true},
		{"aa", "Dupont", true},
		{"Jean", "ababab", true},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name+"_"+tt.surname, func(t *testing.T) {
			got, _ := checkSuspiciousName(nil, UserSnapshot{Name: tt.name, Surname: tt.surname})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminImpersonation(t *testing.T) {
	tests := []struct {
		label string
		user  UserSnapshot
		want  bool
	}{
		{"plain user", cleanUser(), false},
		{"admin name", UserSnapshot{Name: "Admin", Surname: "Root"}, true},
		{"system surname", UserSnapshot{Name: "Paul", Surname: "System"}, true},
		{"admin prefixed token", UserSnapshot{Name: "Administrateur"}, true},
		{"admin email local part", UserSnapshot{Email: "admin@carbon-ledger.fr"}, true},
		{"admin account type", UserSnapshot{AccountType: AccountTypeAdministrator}, true},
		{"admin only in domain", UserSnapshot{Email: "jean@admin-services.fr"}, false},
		{"rooted substring", UserSnapshot{Surname: "Rootes"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, _ := checkAdminImpersonation(nil, tt.user)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidPhone(t *testing.T) {
	tests := []struct {
		phone    string
		want     bool
		wantDesc string
	}{
		{"+33612345678", false, "phone format valid"},
		{"+33 6 12 34 56 78", false, "phone format valid"},
		{"06 12 34 56 78", false, "phone format valid"},
		{"(514) 555-0199 12", false, "phone format valid"},
		{"12345", true, "phone format invalid"},
		{"abc-def-ghij", true, "phone format invalid"},
		{"+0123456789012", true, "phone country code invalid"},
		{"0000000000", true, "phone is a single repeated digit"},
		{"+11111111111", true, "phone is a single repeated digit"},
		{"0123456789", true, "phone digits are trivially sequential"},
		{"9876543210", true, "phone digits are trivially sequential"},
		{"", false, "no phone provided"},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			got, desc := checkInvalidPhone(nil, UserSnapshot{Phone: tt.phone})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDesc, desc)
		})
	}
}

func TestInconsistentAddress(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"123 Rue de la Paix, Paris", false},
		{"8 Allée des Érables, Nantes", false},
		{"test", true},
		{"N/A", true},
		{"Rue", true},
		{"12 Fake Street, Lyon", true},
		{"unknown address", true},
		{"", false},
	}

	p := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, _ := checkInconsistentAddress(p, UserSnapshot{Address: tt.address})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCombinedRiskNeedsThreeBaseIndicators(t *testing.T) {
	p := DefaultPolicy()

	two := cleanUser()
	two.Email = "x@yopmail.com"
	two.Name = "Test"
	ind := indicatorOf(t, EvaluateIndicators(p, two), IndicatorCombinedRisk)
	assert.False(t, ind.Detected)

	three := two
	three.Phone = "1111111111"
	ind = indicatorOf(t, EvaluateIndicators(p, three), IndicatorCombinedRisk)
	assert.True(t, ind.Detected)
	assert.Contains(t, ind.Description, "3 base indicators")
}

func TestEvaluateIndicatorsConcurrentUse(t *testing.T) {
	p := DefaultPolicy()
	user := UserSnapshot{Name: "Fake", Surname: "Test", Email: "test@guerrillamail.com", Phone: "0000000000", Address: "test"}
	want := EvaluateIndicators(p, user)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, EvaluateIndicators(p, user))
		}()
	}
	wg.Wait()
}
