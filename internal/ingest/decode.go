package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Watcher events arrive as JSON envelopes:
//
//	{"type": "tasks-changed", "payload": {"teamName": "...", "tasks": [...]}}
//
// Each event kind carries a JSON Schema; payloads that fail validation
// are rejected outright rather than partially applied.

const memberSchema = `{
	"type": "object",
	"required": ["name", "agentId", "joinedAt"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"agentId": {"type": "string", "minLength": 1},
		"joinedAt": {"type": "string"}
	}
}`

const configSchema = `{
	"type": "object",
	"required": ["name", "members", "leadAgentId", "createdAt"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"members": {"type": "array", "items": {"$ref": "member.json"}},
		"leadAgentId": {"type": "string"},
		"createdAt": {"type": "string"}
	}
}`

const taskSchema = `{
	"type": "object",
	"required": ["id", "status"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"status": {"enum": ["pending", "in_progress", "completed", "blocked", "deleted"]},
		"owner": {"type": "string"},
		"blockedBy": {"type": "array", "items": {"type": "string"}},
		"metadata": {"type": "object"}
	}
}`

const messageSchema = `{
	"type": "object",
	"required": ["from", "timestamp", "content"],
	"properties": {
		"from": {"type": "string", "minLength": 1},
		"timestamp": {"type": "string"},
		"content": {"type": "string"},
		"summary": {"type": "string"}
	}
}`

// payloadSchemas maps event kind to its payload schema document.
var payloadSchemas = map[Kind]string{
	KindTeamConfigChanged: `{
		"type": "object",
		"required": ["teamName", "config"],
		"properties": {
			"teamName": {"type": "string", "minLength": 1},
			"config": {"$ref": "config.json"}
		}
	}`,
	KindTasksChanged: `{
		"type": "object",
		"required": ["teamName", "tasks"],
		"properties": {
			"teamName": {"type": "string", "minLength": 1},
			"tasks": {"type": "array", "items": {"$ref": "task.json"}}
		}
	}`,
	KindInboxChanged: `{
		"type": "object",
		"required": ["teamName", "agentName", "messages"],
		"properties": {
			"teamName": {"type": "string", "minLength": 1},
			"agentName": {"type": "string", "minLength": 1},
			"messages": {"type": "array", "items": {"$ref": "message.json"}}
		}
	}`,
	KindTeamCreated: `{
		"type": "object",
		"required": ["config"],
		"properties": {
			"config": {"$ref": "config.json"}
		}
	}`,
	KindTeamDeleted: `{
		"type": "object",
		"required": ["teamName"],
		"properties": {"teamName": {"type": "string", "minLength": 1}}
	}`,
	KindTeamStale: `{
		"type": "object",
		"required": ["teamName"],
		"properties": {"teamName": {"type": "string", "minLength": 1}}
	}`,
	KindWatcherError: `{
		"type": "object",
		"required": ["error"],
		"properties": {"error": {"type": "string"}}
	}`,
}

// envelope is the outer wrapper on every raw watcher event.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decoder validates and decodes raw watcher events. Construct once and
// reuse; schema compilation is not cheap.
type Decoder struct {
	schemas map[Kind]*jsonschema.Schema
}

// NewDecoder compiles the payload schemas for all event kinds.
func NewDecoder() (*Decoder, error) {
	c := jsonschema.NewCompiler()

	shared := map[string]string{
		"member.json":  memberSchema,
		"config.json":  configSchema,
		"task.json":    taskSchema,
		"message.json": messageSchema,
	}
	for name, doc := range shared {
		parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
		if err != nil {
			return nil, fmt.Errorf("ingest: parse schema %s: %w", name, err)
		}
		if err := c.AddResource(name, parsed); err != nil {
			return nil, fmt.Errorf("ingest: add schema %s: %w", name, err)
		}
	}

	schemas := make(map[Kind]*jsonschema.Schema, len(payloadSchemas))
	for kind, doc := range payloadSchemas {
		name := string(kind) + ".json"
		parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
		if err != nil {
			return nil, fmt.Errorf("ingest: parse schema for %s: %w", kind, err)
		}
		if err := c.AddResource(name, parsed); err != nil {
			return nil, fmt.Errorf("ingest: add schema for %s: %w", kind, err)
		}
		compiled, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("ingest: compile schema for %s: %w", kind, err)
		}
		schemas[kind] = compiled
	}

	return &Decoder{schemas: schemas}, nil
}

// Decode validates a raw event envelope and returns the typed event.
// It fails closed: any malformed envelope, unknown type, or payload
// that does not satisfy the schema is rejected with an error and no
// state change.
func (d *Decoder) Decode(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("ingest: malformed envelope: %w", err)
	}

	schema, ok := d.schemas[env.Type]
	if !ok {
		return nil, fmt.Errorf("ingest: unknown event type %q", env.Type)
	}
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("ingest: %s: missing payload", env.Type)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(env.Payload))
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: malformed payload: %w", env.Type, err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("ingest: %s: invalid payload: %w", env.Type, err)
	}

	return decodePayload(env.Type, env.Payload)
}

// decodePayload unmarshals a validated payload into its typed event.
func decodePayload(kind Kind, payload json.RawMessage) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch kind {
	case KindTeamConfigChanged:
		var e ConfigChanged
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindTasksChanged:
		var e TasksChanged
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindInboxChanged:
		var e InboxChanged
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindTeamCreated:
		var e TeamCreated
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindTeamDeleted:
		var e TeamDeleted
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindTeamStale:
		var e TeamStale
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindWatcherError:
		var e WatcherFailure
		err = json.Unmarshal(payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("ingest: unknown event type %q", kind)
	}
	if err != nil {
		// Schema validation passed but Go decoding failed, e.g. an
		// unparseable timestamp. Still fails closed.
		return nil, fmt.Errorf("ingest: %s: decode payload: %w", kind, err)
	}
	return ev, nil
}
