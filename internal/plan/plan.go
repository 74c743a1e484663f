// Package plan loads the task list the bot works through. A plan file names
// task kinds and their parameters; item ids that belong to categories (bones,
// food, gear sets) come from the item catalog instead.
package plan

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"tickbot.ai/internal/game"
)

//go:embed plan.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("plan.schema.json", schemaJSON)

type Plan struct {
	OnDeath *DeathParams `yaml:"on_death"`
	Tasks   []Entry      `yaml:"tasks"`
}

type Entry struct {
	Kind   string    `yaml:"kind"`
	Params yaml.Node `yaml:"params"`
}

type BuryParams struct {
	Bones []int `yaml:"bones"`
	Max   int   `yaml:"max"`
}

type DropParams struct {
	Items   []int  `yaml:"items"`
	Keep    int    `yaml:"keep"`
	Pattern string `yaml:"pattern"`
	Shift   *bool  `yaml:"shift"`
}

type EquipParams struct {
	Items   []int  `yaml:"items"`
	GearSet string `yaml:"gear_set"`
	Style   string `yaml:"style"`
}

type CombatParams struct {
	NPCIDs               []int       `yaml:"npc_ids"`
	Names                []string    `yaml:"names"`
	Kills                int         `yaml:"kills"`
	Attacks              int         `yaml:"attacks"`
	MaxDurationTicks     int         `yaml:"max_duration_ticks"`
	MaxDistance          int         `yaml:"max_distance"`
	SafeSpot             *game.Point `yaml:"safe_spot"`
	Eat                  bool        `yaml:"eat"`
	StopWhenOutOfFood    bool        `yaml:"stop_when_out_of_food"`
	StopWhenLowResources bool        `yaml:"stop_when_low_resources"`
}

type Stack struct {
	Item int `yaml:"item"`
	Qty  int `yaml:"qty"`
}

type TradeParams struct {
	Mode     string  `yaml:"mode"`
	Offer    []Stack `yaml:"offer"`
	Expected []Stack `yaml:"expected"`
	Response string  `yaml:"response"`
	Verify   *bool   `yaml:"verify"`
}

type DeathParams struct {
	ReturnTo         *game.Point `yaml:"return_to"`
	DiedAt           *game.Point `yaml:"died_at"`
	PreferGravestone *bool       `yaml:"prefer_gravestone"`
	MaxOfficeFee     *int        `yaml:"max_office_fee"`
}

func Load(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse validates raw against the plan schema before decoding it, so errors
// name the offending location in the document.
func Parse(raw []byte) (*Plan, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var p Plan
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func Validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("empty plan")
	}
	// Round-trip through JSON so the validator sees json.Number values and
	// string-keyed maps only.
	js, err := sonic.Marshal(doc)
	if err != nil {
		return fmt.Errorf("plan is not JSON-compatible: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return schema.Validate(v)
}

// Decode fills out from the entry's params; a missing params block leaves
// out unchanged.
func (e Entry) Decode(out any) error {
	if e.Params.IsZero() {
		return nil
	}
	if err := e.Params.Decode(out); err != nil {
		return fmt.Errorf("%s params: %w", e.Kind, err)
	}
	return nil
}
