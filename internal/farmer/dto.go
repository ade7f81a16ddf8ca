package farmer

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/frahmantamala/farm-management/internal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CreateFarmerDTO struct {
	Name                  string    `json:"name" validate:"required,min=2,max=255"`
	UserID                string    `json:"userId" validate:"required"`
	Email                 string    `json:"email" validate:"omitempty,email"`
	Phone                 string    `json:"phone" validate:"required,min=7,max=20"`
	Address               string    `json:"address" validate:"omitempty,max=1000"`
	Location              *Location `json:"location"`
	ExperienceLevel       string    `json:"experienceLevel" validate:"omitempty,oneof=beginner intermediate expert"`
	FarmingMethods        []string  `json:"farmingMethods" validate:"omitempty,dive,oneof=organic conventional integrated"`
	CommunicationChannels []string  `json:"communicationChannels" validate:"omitempty,dive,oneof=sms email whatsapp"`
	CropPreferences       []string  `json:"cropPreferences" validate:"omitempty,dive,oneof=paddy vegetables fruits"`
}

func (d *CreateFarmerDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	if d.ExperienceLevel == "" {
		d.ExperienceLevel = ExperienceBeginner
	}
	if len(d.CommunicationChannels) == 0 {
		d.CommunicationChannels = []string{"sms"}
	}
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if d.Location != nil {
		if err := validateLocation(d.Location); err != nil {
			return err
		}
	}
	return nil
}

func validateLocation(loc *Location) error {
	if !contains(Districts, loc.District) {
		return internal.NewValidationError("unknown district "+loc.District, internal.ErrCodeValidationFailed)
	}
	if !contains(Provinces, loc.Province) {
		return internal.NewValidationError("unknown province "+loc.Province, internal.ErrCodeValidationFailed)
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// UpdateFarmerData is the patchable subset of the farmer row. Nil fields are
// left untouched; UserID is deliberately absent because ownership never
// changes through the API.
type UpdateFarmerData struct {
	Name                  *string   `json:"name" validate:"omitempty,min=2,max=255"`
	Email                 *string   `json:"email" validate:"omitempty,email"`
	Phone                 *string   `json:"phone" validate:"omitempty,min=7,max=20"`
	Address               *string   `json:"address" validate:"omitempty,max=1000"`
	Location              *Location `json:"location"`
	ExperienceLevel       *string   `json:"experienceLevel" validate:"omitempty,oneof=beginner intermediate expert"`
	FarmingMethods        []string  `json:"farmingMethods" validate:"omitempty,dive,oneof=organic conventional integrated"`
	CommunicationChannels []string  `json:"communicationChannels" validate:"omitempty,dive,oneof=sms email whatsapp"`
	CropPreferences       []string  `json:"cropPreferences" validate:"omitempty,dive,oneof=paddy vegetables fruits"`
	IsActive              *bool     `json:"isActive"`
}

type UpdateFarmersDTO struct {
	IDs  []string         `json:"ids" validate:"required,min=1,dive,uuid4"`
	Data UpdateFarmerData `json:"data"`
}

func (d *UpdateFarmersDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if d.Data.Location != nil {
		if err := validateLocation(d.Data.Location); err != nil {
			return err
		}
	}
	return nil
}

type DeleteFarmersDTO struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid4"`
}

func (d *DeleteFarmersDTO) Validate() error {
	if err := validate.Struct(d); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

// SearchFilters mirrors the GET /farmers query parameters. IsActive is
// tri-state: nil means no filter.
type SearchFilters struct {
	IDs                   []string
	UserIDs               []string
	Name                  string
	Email                 string
	Phone                 string
	CropPreferences       []string
	CommunicationChannels []string
	FarmingMethods        []string
	IsActive              *bool
}

// ParseSearchFilters decodes the query string. List parameters accept either
// repeated keys or one comma-separated value.
func ParseSearchFilters(values url.Values) (SearchFilters, error) {
	f := SearchFilters{
		IDs:                   splitParam(values, "ids"),
		UserIDs:               splitParam(values, "userIds"),
		Name:                  values.Get("name"),
		Email:                 values.Get("email"),
		Phone:                 values.Get("phone"),
		CropPreferences:       splitParam(values, "cropPreferences"),
		CommunicationChannels: splitParam(values, "communicationChannels"),
		FarmingMethods:        splitParam(values, "farmingMethods"),
	}

	if raw := values.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return f, internal.NewValidationError("isActive must be a boolean", internal.ErrCodeValidationFailed)
		}
		f.IsActive = &active
	}

	for _, set := range [][2]any{
		{f.CropPreferences, CropPreferences},
		{f.CommunicationChannels, CommunicationChannels},
		{f.FarmingMethods, FarmingMethods},
	} {
		got := set[0].([]string)
		allowed := set[1].([]string)
		for _, v := range got {
			if !contains(allowed, v) {
				return f, internal.NewValidationError("unknown filter value "+v, internal.ErrCodeValidationFailed)
			}
		}
	}

	return f, nil
}

func splitParam(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
