package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/blocclock/blocclock/internal/registry"
)

// commandEnvelope is the wire shape of every client-to-server message: a
// tag plus a payload whose shape the tag decides.
type commandEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ParseCommand decodes a client message into one of the closed command
// variants. Unknown tags and malformed payloads are rejected here so the
// registry only ever sees well-formed commands.
func ParseCommand(data []byte) (registry.Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed command envelope: %w", err)
	}

	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	switch env.Type {
	case "timer_patch":
		var cmd registry.TimerPatch
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "config_patch":
		var cmd registry.ConfigPatch
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "upsert_category":
		var cmd registry.UpsertCategory
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "delete_category":
		var cmd registry.DeleteCategory
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "advance_one":
		var cmd registry.AdvanceOne
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "advance_boulder":
		var cmd registry.AdvanceBoulderAll
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "advance_category":
		var cmd registry.AdvanceCategoryAll
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "advance_all":
		return registry.AdvanceEverything{}, nil
	case "skip_climber":
		var cmd registry.SkipClimber
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "reset_progress":
		var cmd registry.ResetProgress
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "switch_round":
		var cmd registry.SwitchRound
		if err := decodePayload(env.Type, payload, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", env.Type)
	}
}

func decodePayload(cmdType string, payload json.RawMessage, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("malformed %s payload: %w", cmdType, err)
	}
	return nil
}
