package fundlist

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var fundCodePattern = regexp.MustCompile(`^\d{6}$`)

// List is a set of fund codes to value, with optional per-list tuning
type List struct {
	Funds       []string `yaml:"funds"`
	MinCoverage *float64 `yaml:"min_coverage,omitempty"`
	TopN        *int     `yaml:"top_n,omitempty"`
}

// ValidationError points at the offending entry
type ValidationError struct {
	Line    int
	Message string
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Load reads a fund list. *.yaml / *.yml files are decoded strictly, anything else is
// plain text: one code per line, blank lines and lines starting with # ignored.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fund list: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseText(data)
	}
}

// ParseText parses the plain text format
func ParseText(data []byte) (*List, error) {
	list := &List{Funds: []string{}}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !fundCodePattern.MatchString(line) {
			return nil, ValidationError{Line: lineNo, Message: fmt.Sprintf("invalid fund code %q", line)}
		}
		list.Funds = append(list.Funds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan fund list: %w", err)
	}

	return list, nil
}

// ParseYAML parses the YAML format. Unknown fields are an error.
func ParseYAML(data []byte) (*List, error) {
	var list List
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("decode fund list: %w", err)
	}

	if err := Validate(&list); err != nil {
		return nil, err
	}
	if list.Funds == nil {
		list.Funds = []string{}
	}
	return &list, nil
}

// Validate checks codes and tuning ranges
func Validate(list *List) error {
	for i, code := range list.Funds {
		if !fundCodePattern.MatchString(strings.TrimSpace(code)) {
			return ValidationError{Message: fmt.Sprintf("funds[%d]: invalid fund code %q", i, code)}
		}
		list.Funds[i] = strings.TrimSpace(code)
	}

	if list.MinCoverage != nil && (*list.MinCoverage < 0 || *list.MinCoverage > 100) {
		return ValidationError{Message: fmt.Sprintf("min_coverage must be within [0, 100], got %v", *list.MinCoverage)}
	}
	if list.TopN != nil && *list.TopN < 1 {
		return ValidationError{Message: fmt.Sprintf("top_n must be >= 1, got %d", *list.TopN)}
	}
	return nil
}

// Hash identifies the list contents in logs (order sensitive)
func (l *List) Hash() string {
	sum := sha256.Sum256([]byte(strings.Join(l.Funds, ",")))
	return hex.EncodeToString(sum[:])[:12]
}
