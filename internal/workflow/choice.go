package workflow

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

// OtherSentinel is the dropdown value that switches to free-text entry.
const OtherSentinel = "Other"

// Choice is a supplier or brand value: either a known option or custom text.
type Choice struct {
	value  string
	custom bool
}

func Known(name string) Choice  { return Choice{value: strings.TrimSpace(name)} }
func Custom(text string) Choice { return Choice{value: strings.TrimSpace(text), custom: true} }

// ParseChoice maps a selected option and optional custom text. Selecting
// OtherSentinel requires custom text.
func ParseChoice(field, selected, custom string) (Choice, error) {
	selected = strings.TrimSpace(selected)
	if strings.EqualFold(selected, OtherSentinel) {
		if strings.TrimSpace(custom) == "" {
			return Choice{}, pkgerrors.New(pkgerrors.CodeValidation, field+" requires a custom value when Other is selected")
		}
		return Custom(custom), nil
	}
	return Known(selected), nil
}

func (c Choice) Value() string  { return c.value }
func (c Choice) IsCustom() bool { return c.custom }
func (c Choice) IsEmpty() bool  { return c.value == "" }

type choiceJSON struct {
	Value  string `json:"value"`
	Custom bool   `json:"custom,omitempty"`
}

func (c Choice) MarshalJSON() ([]byte, error) {
	return json.Marshal(choiceJSON{Value: c.value, Custom: c.custom})
}

// UnmarshalJSON accepts either a plain string or {"value","custom"}.
func (c *Choice) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*c = Known(plain)
		return nil
	}
	var obj choiceJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Custom {
		*c = Custom(obj.Value)
	} else {
		*c = Known(obj.Value)
	}
	return nil
}
