package records

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a record id. json-server hands out numeric ids and other stores use strings,
// so both decode. An ID always encodes as a string.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("records: id must be a string or a number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}
