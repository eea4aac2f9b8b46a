package entity

import (
	"encoding/json"
	"time"
)

// FieldConfidence is the backend's per-field confidence, each in [0,1].
type FieldConfidence struct {
	Name      float64
	Phone     float64
	Address   float64
	Specialty float64
	Email     float64
}

// Provider is one directory record being validated. Raw fields and validated
// overrides are optional; a non-nil override means the backend supplied a correction.
// It is encoded in the backend's flat wire format (see providerWire).
type Provider struct {
	ID    int64
	JobID string

	Name      *string
	NPI       *string
	Phone     *string
	Address   *string
	Specialty *string
	Email     *string
	City      *string
	State     *string
	ZipCode   *string
	Website   *string

	ValidatedName      *string
	ValidatedPhone     *string
	ValidatedAddress   *string
	ValidatedSpecialty *string
	ValidatedEmail     *string
	ValidatedWebsite   *string

	Confidence        FieldConfidence
	ConfidenceOverall float64

	IsValidated  bool
	NeedsReview  bool
	IsSuspicious bool

	Issues          []string
	ValidationNotes *string

	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// providerWire is the backend's flat encoding of Provider.
type providerWire struct {
	ID    int64  `json:"id"`
	JobID string `json:"job_id"`

	Name      *string `json:"name"`
	NPI       *string `json:"npi"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Specialty *string `json:"specialty"`
	Email     *string `json:"email"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	ZipCode   *string `json:"zip_code"`
	Website   *string `json:"website"`

	ValidatedName      *string `json:"validated_name"`
	ValidatedPhone     *string `json:"validated_phone"`
	ValidatedAddress   *string `json:"validated_address"`
	ValidatedSpecialty *string `json:"validated_specialty"`
	ValidatedEmail     *string `json:"validated_email"`
	ValidatedWebsite   *string `json:"validated_website"`

	ConfidenceName      float64 `json:"confidence_name"`
	ConfidencePhone     float64 `json:"confidence_phone"`
	ConfidenceAddress   float64 `json:"confidence_address"`
	ConfidenceSpecialty float64 `json:"confidence_specialty"`
	ConfidenceEmail     float64 `json:"confidence_email"`
	ConfidenceOverall   float64 `json:"confidence_overall"`

	NeedsReview  bool `json:"needs_review"`
	IsSuspicious bool `json:"is_suspicious"`
	IsValidated  bool `json:"is_validated"`

	Issues          []string `json:"issues"`
	ValidationNotes *string  `json:"validation_notes"`

	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (p *Provider) UnmarshalJSON(data []byte) error {
	var w providerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	issues := w.Issues
	if issues == nil {
		issues = []string{}
	}
	*p = Provider{
		ID:                 w.ID,
		JobID:              w.JobID,
		Name:               w.Name,
		NPI:                w.NPI,
		Phone:              w.Phone,
		Address:            w.Address,
		Specialty:          w.Specialty,
		Email:              w.Email,
		City:               w.City,
		State:              w.State,
		ZipCode:            w.ZipCode,
		Website:            w.Website,
		ValidatedName:      w.ValidatedName,
		ValidatedPhone:     w.ValidatedPhone,
		ValidatedAddress:   w.ValidatedAddress,
		ValidatedSpecialty: w.ValidatedSpecialty,
		ValidatedEmail:     w.ValidatedEmail,
		ValidatedWebsite:   w.ValidatedWebsite,
		Confidence: FieldConfidence{
			Name:      ClampUnit(w.ConfidenceName),
			Phone:     ClampUnit(w.ConfidencePhone),
			Address:   ClampUnit(w.ConfidenceAddress),
			Specialty: ClampUnit(w.ConfidenceSpecialty),
			Email:     ClampUnit(w.ConfidenceEmail),
		},
		ConfidenceOverall: ClampUnit(w.ConfidenceOverall),
		IsValidated:       w.IsValidated,
		NeedsReview:       w.NeedsReview,
		IsSuspicious:      w.IsSuspicious,
		Issues:            issues,
		ValidationNotes:   w.ValidationNotes,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}
	return nil
}

func (p Provider) MarshalJSON() ([]byte, error) {
	return json.Marshal(providerWire{
		ID:                  p.ID,
		JobID:               p.JobID,
		Name:                p.Name,
		NPI:                 p.NPI,
		Phone:               p.Phone,
		Address:             p.Address,
		Specialty:           p.Specialty,
		Email:               p.Email,
		City:                p.City,
		State:               p.State,
		ZipCode:             p.ZipCode,
		Website:             p.Website,
		ValidatedName:       p.ValidatedName,
		ValidatedPhone:      p.ValidatedPhone,
		ValidatedAddress:    p.ValidatedAddress,
		ValidatedSpecialty:  p.ValidatedSpecialty,
		ValidatedEmail:      p.ValidatedEmail,
		ValidatedWebsite:    p.ValidatedWebsite,
		ConfidenceName:      p.Confidence.Name,
		ConfidencePhone:     p.Confidence.Phone,
		ConfidenceAddress:   p.Confidence.Address,
		ConfidenceSpecialty: p.Confidence.Specialty,
		ConfidenceEmail:     p.Confidence.Email,
		ConfidenceOverall:   p.ConfidenceOverall,
		NeedsReview:         p.NeedsReview,
		IsSuspicious:        p.IsSuspicious,
		IsValidated:         p.IsValidated,
		Issues:              p.Issues,
		ValidationNotes:     p.ValidationNotes,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	})
}

// StrOrEmpty dereferences an optional field.
func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// preferValidated returns the override when present, else the raw value, else "".
func preferValidated(validated, raw *string) string {
	if validated != nil && *validated != "" {
		return *validated
	}
	return StrOrEmpty(raw)
}

func (p *Provider) DisplayName() string    { return preferValidated(p.ValidatedName, p.Name) }
func (p *Provider) DisplayPhone() string   { return preferValidated(p.ValidatedPhone, p.Phone) }
func (p *Provider) DisplayAddress() string { return preferValidated(p.ValidatedAddress, p.Address) }
func (p *Provider) DisplaySpecialty() string {
	return preferValidated(p.ValidatedSpecialty, p.Specialty)
}

// ProviderPage is one page of provider records for a job.
type ProviderPage struct {
	JobID     string     `json:"-"`
	Providers []Provider `json:"providers"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	FetchedAt time.Time  `json:"-"`
}
