package protocol_test

import (
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tickbot.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validateJSON(t *testing.T, s *jsonschema.Schema, raw []byte) error {
	t.Helper()
	var v any
	if err := protocol.Decode(raw, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return s.Validate(v)
}

func validateMsg(t *testing.T, s *jsonschema.Schema, msg any) {
	t.Helper()
	raw, err := protocol.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := validateJSON(t, s, raw); err != nil {
		t.Fatalf("validate %s: %v", raw, err)
	}
}

func TestSchemas_ValidateSamples(t *testing.T) {
	hello := compile(t, "hello.schema.json")
	obs := compile(t, "obs.schema.json")

	if err := validateJSON(t, hello, []byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"runelite-bridge",
	  "account_mode":"HARDCORE_IRONMAN",
	  "capabilities":{"gravestones":true,"max_commands":4}
	}`)); err != nil {
		t.Fatalf("hello: %v", err)
	}

	if err := validateJSON(t, obs, []byte(`{
	  "type":"OBS",
	  "protocol_version":"1.0",
	  "tick":12,
	  "logged_in":true,
	  "self":{"name":"Zezima","pos":[3200,3200,0],"animation":-1,"hp":10,"max_hp":10,"target_npc":-1},
	  "inventory":[{"slot":0,"id":526,"qty":1}],
	  "equipment":[{"slot":"WEAPON","id":1277}],
	  "combat":{},
	  "trade":{"stage":"CONFIRM","partner":"bob","receiving":[{"id":995,"qty":100}],"readable":true},
	  "death":{"gravestone_ticks":300,"gravestone":[3201,3201,0]},
	  "acks":[{"id":"c1","ok":false,"code":"E_BLOCKED"}]
	}`)); err != nil {
		t.Fatalf("obs: %v", err)
	}

	if err := validateJSON(t, obs, []byte(`{
	  "type":"OBS","protocol_version":"1.0","tick":1,"logged_in":true,
	  "self":{"name":"x","pos":[0,0],"animation":-1,"hp":1,"max_hp":1,"target_npc":-1},
	  "inventory":[],"equipment":[],"combat":{},"death":{}
	}`)); err == nil {
		t.Fatalf("expected two-element position rejected")
	}
}

func TestSchemas_ValidateEncodedMessages(t *testing.T) {
	tile := [3]int{10, 20, 0}
	validateMsg(t, compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version,
		SessionID: "s1", TickRateHz: 2, AckTimeoutTicks: 10,
	})
	validateMsg(t, compile(t, "act.schema.json"), protocol.ActMsg{
		Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Tick: 5,
		Commands: []protocol.CommandReq{
			{ID: "c1", Kind: protocol.CmdClick, Label: "Bury", Target: &protocol.TargetReq{Kind: "INV_SLOT", Slot: 3}},
			{ID: "c2", Kind: protocol.CmdKeyHold, Key: "SHIFT"},
			{ID: "c3", Kind: protocol.CmdWalk, Tile: &tile},
		},
	})
	validateMsg(t, compile(t, "error.schema.json"), protocol.NewError(protocol.ErrProtoVersion, "unsupported version"))
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"OBS","protocol_version":"1.0","tick":3}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != protocol.TypeObs || m.ProtocolVersion != protocol.Version {
		t.Fatalf("base=%+v", m)
	}
	if _, err := protocol.DecodeBase([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected truncated message rejected")
	}
}
