package farmer

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Closed value sets for the profile fields. Stored as plain strings but
// validated against these lists at the DTO boundary.
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceExpert       = "expert"
)

var (
	ExperienceLevels      = []string{ExperienceBeginner, ExperienceIntermediate, ExperienceExpert}
	FarmingMethods        = []string{"organic", "conventional", "integrated"}
	CommunicationChannels = []string{"sms", "email", "whatsapp"}
	CropPreferences       = []string{"paddy", "vegetables", "fruits"}
	Districts             = []string{"galle", "colombo", "mathara"}
	Provinces             = []string{"southern", "western"}
)

// StringList is a []string stored as a JSON column so the same model works
// on postgres jsonb and the sqlite test database.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// Location is the farmer's geolocation, stored as a JSON column.
type Location struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	District string  `json:"district"`
	Province string  `json:"province"`
}

func (loc Location) Value() (driver.Value, error) {
	b, err := json.Marshal(loc)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (loc *Location) Scan(value any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, loc)
	case string:
		return json.Unmarshal([]byte(v), loc)
	default:
		return errors.New("unsupported column type for Location")
	}
}

// Farmer is the persisted profile row. UserID is the owner field the
// ownership partition reads; it never changes after creation.
type Farmer struct {
	ID                    string     `json:"id" gorm:"column:id;primaryKey"`
	Name                  string     `json:"name" gorm:"column:name"`
	UserID                string     `json:"userId" gorm:"column:user_id;index"`
	Email                 string     `json:"email,omitempty" gorm:"column:email"`
	Phone                 string     `json:"phone" gorm:"column:phone"`
	Address               string     `json:"address,omitempty" gorm:"column:address"`
	Location              *Location  `json:"location,omitempty" gorm:"column:location;type:jsonb"`
	ExperienceLevel       string     `json:"experienceLevel" gorm:"column:experience_level"`
	FarmingMethods        StringList `json:"farmingMethods" gorm:"column:farming_methods;type:jsonb"`
	CommunicationChannels StringList `json:"communicationChannels" gorm:"column:communication_channels;type:jsonb"`
	CropPreferences       StringList `json:"cropPreferences" gorm:"column:crop_preferences;type:jsonb"`
	IsActive              bool       `json:"isActive" gorm:"column:is_active"`
	CreatedAt             time.Time  `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt             time.Time  `json:"updatedAt" gorm:"column:updated_at"`
}

func (Farmer) TableName() string {
	return "farmers"
}
