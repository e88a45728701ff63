package messages

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessagesYAML []byte

// Catalog maps utterance keys to response texts. It is immutable after Load.
type Catalog struct {
	texts map[string]string
}

// Load parses the embedded catalog and, when overridePath is set, layers the
// texts of that file on top of it.
func Load(overridePath string) (*Catalog, error) {
	texts, err := parse(defaultMessagesYAML)
	if err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}
	if overridePath == "" {
		return &Catalog{texts: texts}, nil
	}

	raw, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read messages file: %w", err)
	}
	override, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", overridePath, err)
	}
	for k, v := range override {
		texts[k] = v
	}
	return &Catalog{texts: texts}, nil
}

// MustLoadDefault returns the embedded catalog and panics if it does not parse.
func MustLoadDefault() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

func parse(raw []byte) (map[string]string, error) {
	texts := map[string]string{}
	if err := yaml.Unmarshal(raw, &texts); err != nil {
		return nil, err
	}
	return texts, nil
}

func (c *Catalog) Has(key string) bool {
	_, ok := c.texts[key]
	return ok
}

// Render returns the text for key with {name} placeholders replaced from
// args. Unknown keys render as the key itself so a missing text is visible
// instead of silent.
func (c *Catalog) Render(key string, args map[string]string) string {
	text, ok := c.texts[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for name, val := range args {
		pairs = append(pairs, "{"+name+"}", val)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// AskKey is the utterance that prompts for field.
func AskKey(field string) string {
	return "utter_ask_" + field
}
