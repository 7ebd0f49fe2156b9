// internal/conversation/toolcall.go
package conversation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall is the model's request to invoke one catalogue tool, embedded in
// its reply as a fenced JSON block.
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|tool)?\\s*(\\{.*?)```")

// ParseToolCall extracts the first fenced JSON block shaped {name, arguments}
// from the model's reply. Blocks that do not parse go through a tolerant
// repair pass first; this is recovery, not a guarantee. Returns nil when the
// reply contains no tool call, which ends the loop.
func ParseToolCall(text string) *ToolCall {
	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	for _, m := range matches {
		if call := decodeToolCall(m[1]); call != nil {
			return call
		}
	}

	// Some models skip the fence and emit the object bare.
	if start := strings.Index(text, `{"name"`); start >= 0 {
		return decodeToolCall(text[start:])
	}
	return nil
}

// StripToolCall removes the tool-call block from the reply so intermediate
// commentary can still be surfaced as content.
func StripToolCall(text string) string {
	return strings.TrimSpace(fencedBlock.ReplaceAllString(text, ""))
}

func decodeToolCall(raw string) *ToolCall {
	raw = strings.TrimSpace(raw)

	var call ToolCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		repaired := repairJSON(raw)
		if err := json.Unmarshal([]byte(repaired), &call); err != nil {
			return nil
		}
	}
	if call.Name == "" {
		return nil
	}
	if call.Arguments == nil {
		call.Arguments = map[string]interface{}{}
	}
	return &call
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// repairJSON fixes the two failure shapes models actually produce: trailing
// commas and unbalanced closing brackets at the end of a truncated object.
func repairJSON(raw string) string {
	raw = trailingComma.ReplaceAllString(raw, "$1")

	// Truncate at the end of the first balanced object, or append the
	// closers a truncated object is missing.
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
				if len(stack) == 0 {
					return raw[:i+1]
				}
			}
		}
	}

	if inString {
		raw += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		raw += string(stack[i])
	}
	return raw
}
