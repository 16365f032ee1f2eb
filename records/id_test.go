package records_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-portal-session/records"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    records.ID
		wantErr bool
	}{
		{name: "number", raw: `1`, want: "1"},
		{name: "large number", raw: `1700000000123`, want: "1700000000123"},
		{name: "string", raw: `"a1b2"`, want: "a1b2"},
		{name: "numeric string", raw: `"7"`, want: "7"},
		{name: "null", raw: `null`, want: ""},
		{name: "object", raw: `{"id":1}`, wantErr: true},
		{name: "bool", raw: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id records.ID
			err := json.Unmarshal([]byte(tt.raw), &id)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, id)
		})
	}

	t.Run("encodes as a string", func(t *testing.T) {
		raw, err := json.Marshal(struct {
			ID records.ID `json:"id"`
		}{ID: "1"})
		require.NoError(t, err)
		require.JSONEq(t, `{"id":"1"}`, string(raw))
	})
}

func TestCollection_NumericIDs(t *testing.T) {
	type item struct {
		ID   records.ID `json:"id"`
		Name string     `json:"name"`
	}
	srv, captured := newCapturingServer(t, http.StatusOK, `[{"id":1,"name":"one"},{"id":"2","name":"two"}]`)
	client, err := records.New(srv.URL, nil)
	require.NoError(t, err)

	list, err := records.NewCollection[item](client, "items").List(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []item{{ID: "1", Name: "one"}, {ID: "2", Name: "two"}}, list)
	require.Equal(t, "/items", (*captured)[0].Path)
}
