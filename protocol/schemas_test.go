package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"mazerun/protocol"
	"mazerun/world"
)

func TestSchemas_ValidateEncodedMessages(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		s, err := jsonschema.Compile(filepath.Join("..", "schemas", name+".schema.json"))
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	pos := world.Vec3{X: 1.5, Y: -2, Z: 0.35}
	samples := []struct {
		typ string
		v   any
	}{
		{protocol.TypeID, "c0ffee"},
		{protocol.TypeMap, protocol.Describe(world.Default())},
		{protocol.TypeUpdate, protocol.Update{T: 1700000000000, P: pos}},
		{protocol.TypeClients, protocol.Clients{"a": {T: 12, P: &pos}, "b": {}}},
		{protocol.TypeRemoveClient, "b"},
		{protocol.TypeWinner, "a"},
		{protocol.TypeScoreboard, protocol.Scoreboard{"a": 3, "b": 0.5}},
	}
	for _, s := range samples {
		t.Run(s.typ, func(t *testing.T) {
			frame, err := protocol.Encode(s.typ, s.v)
			if err != nil {
				t.Fatal(err)
			}
			var doc any
			if err := json.Unmarshal(frame, &doc); err != nil {
				t.Fatal(err)
			}
			if err := compile(s.typ).Validate(doc); err != nil {
				t.Fatalf("validate %s: %v", frame, err)
			}
		})
	}
}

func TestSchemas_RejectMalformed(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("..", "schemas", "update.schema.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc any
	_ = json.Unmarshal([]byte(`{"type":"update","data":{"t":1,"p":{"x":1,"y":2}}}`), &doc)
	if err := s.Validate(doc); err == nil {
		t.Fatal("update without p.z should not validate")
	}
}
