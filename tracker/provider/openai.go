// Package provider holds the language-model boundary: one structured-output
// summarization call per post, zero temperature, no retries. Deterministic decoding
// means a malformed response is a logic bug, not a transient fault, so it surfaces as a
// fatal MalformedOutputError.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// MalformedOutputError reports model output that failed to decode into the expected
// JSON object. It is never retried.
type MalformedOutputError struct {
	Err          error
	OutputPrefix string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v (output_prefix=%q)", e.Err, e.OutputPrefix)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

const summarizePrompt = `You are a marketer and product designer for a humanoid robotics company interested in the public's perception of humanoid robots so that you may design your humanoid robot accordingly to meet the needs of consumers.

You will receive the flattened comments of one Reddit post about a humanoid robot.

Provide a brief summary of the comments found within the post, and also list out major themes pertinent to people's perceptions of the humanoid robot that would be relevant to a marketer and product designer (e.g. concerned about safety, the robot is too big, likes how the robot walks).

Return only JSON matching the schema.`

// PostSummary is the structured result of one summarization call.
type PostSummary struct {
	Summary string   `json:"summary"`
	Themes  []string `json:"themes"`
}

var postSummarySchema = GenerateSchema[PostSummary]()

// Summarizer issues summarization requests against the OpenAI responses API.
type Summarizer struct {
	client *openai.Client
	model  string
}

// NewSummarizer builds a summarizer for the given model.
func NewSummarizer(client *openai.Client, model string) *Summarizer {
	return &Summarizer{client: client, model: model}
}

// Summarize runs one zero-temperature, schema-constrained request over a flattened
// comment transcript. The core attaches no retry discipline to this call.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (PostSummary, error) {
	if s.client == nil {
		return PostSummary{}, errors.New("summarizer: client is nil")
	}
	if s.model == "" {
		return PostSummary{}, errors.New("summarizer: model is empty")
	}

	params := responses.ResponseNewParams{
		Model:        s.model,
		Temperature:  openai.Float(0),
		Instructions: openai.String(summarizePrompt),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(transcript, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "PostSummary",
					Schema:      postSummarySchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Post summary JSON"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return PostSummary{}, fmt.Errorf("summarize request: %w", err)
	}

	var out PostSummary
	if err := DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return PostSummary{}, &MalformedOutputError{Err: err, OutputPrefix: truncate(resp.OutputText(), 500)}
	}
	out.Summary = strings.TrimSpace(out.Summary)
	return out, nil
}

// DecodeModelJSON unmarshals JSON from a model response, tolerating leading/trailing
// text around the object but nothing more.
func DecodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return errors.New("empty model output")
	}

	// Fast path: valid JSON as-is.
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}

	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// GenerateSchema reflects T into a strict-mode JSON schema for structured outputs.
func GenerateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureOpenAICompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func ensureOpenAICompliance(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
			var requiredFields []string
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(additionalProps)
	}
}
