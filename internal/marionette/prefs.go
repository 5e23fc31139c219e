package marionette

import (
	"encoding/json"
	"fmt"
)

const getPrefScript = `
let [name] = arguments;
let prefs = Services.prefs;
switch (prefs.getPrefType(name)) {
  case prefs.PREF_STRING:
    return prefs.getStringPref(name);
  case prefs.PREF_INT:
    return prefs.getIntPref(name);
  case prefs.PREF_BOOL:
    return prefs.getBoolPref(name);
  default:
    return null;
}`

const setPrefScript = `
let [name, value] = arguments;
let prefs = Services.prefs;
switch (typeof value) {
  case "string":
    prefs.setStringPref(name, value);
    break;
  case "number":
    if (!Number.isInteger(value)) {
      throw new TypeError("preference " + name + " must be an integer, got " + value);
    }
    prefs.setIntPref(name, value);
    break;
  case "boolean":
    prefs.setBoolPref(name, value);
    break;
  default:
    throw new TypeError("unsupported preference type " + typeof value);
}`

// Pref returns the value of a browser preference, or JSON null when it is unset.
func (c *Client) Pref(name string) (json.RawMessage, error) {
	s := NewScript(getPrefScript).SystemSandbox()
	if err := s.SetArguments([]string{name}); err != nil {
		return nil, err
	}

	var value json.RawMessage
	err := c.WithContext(Chrome, func() error {
		var err error
		value, err = c.ExecuteScript(s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get pref %s: %w", name, err)
	}
	return value, nil
}

// SetPref sets a string, integer or boolean browser preference.
func (c *Client) SetPref(name string, value json.RawMessage) error {
	s := NewScript(setPrefScript).SystemSandbox()
	if err := s.SetArguments([]json.RawMessage{mustJSON(name), value}); err != nil {
		return err
	}

	err := c.WithContext(Chrome, func() error {
		_, err := c.ExecuteScript(s)
		return err
	})
	if err != nil {
		return fmt.Errorf("set pref %s: %w", name, err)
	}
	return nil
}

func mustJSON(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
