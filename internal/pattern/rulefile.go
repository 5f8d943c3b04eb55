package pattern

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
)

const utf8BOM = "\ufeff"

// RuleColumns is the header of the rule file.
var RuleColumns = []string{"keyword", "category", "purpose", "subcat", "confidence", "count", "total", "enabled", "notes"}

// WriteRules writes rules as CSV with a BOM so spreadsheet tools detect UTF-8.
func WriteRules(w io.Writer, rules []Rule) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write rule file: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(RuleColumns); err != nil {
		return fmt.Errorf("failed to write rule header: %w", err)
	}
	for _, r := range rules {
		enabled := "TRUE"
		if !r.Enabled {
			enabled = "FALSE"
		}
		record := []string{
			r.Keyword,
			r.Category,
			r.Purpose,
			r.Subcat,
			r.ConfidencePercent(),
			strconv.Itoa(r.Count),
			strconv.Itoa(r.Total),
			enabled,
			r.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write rule %q: %w", r.Keyword, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRules parses a rule file, keeping row order. Columns are located by
// header name. A missing enabled column means every rule is enabled; otherwise
// only TRUE (any case) enables a rule. Rows without keyword or category are skipped.
func ReadRules(r io.Reader) ([]Rule, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: rule header: %w", common.ErrMalformedInput, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"keyword", "category", "purpose", "subcat"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: rule file lacks %q column", common.ErrMalformedInput, required)
		}
	}
	_, hasEnabled := cols["enabled"]

	get := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rules []Rule
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: rule file line %d: %w", common.ErrMalformedInput, line, err)
		}

		rule := Rule{
			Keyword:  get(record, "keyword"),
			Category: get(record, "category"),
			Purpose:  get(record, "purpose"),
			Subcat:   get(record, "subcat"),
			Notes:    get(record, "notes"),
			Enabled:  true,
		}
		if rule.Keyword == "" || rule.Category == "" {
			slog.Warn("Skipping rule without keyword or category", "line", line)
			continue
		}
		if hasEnabled {
			rule.Enabled = strings.EqualFold(get(record, "enabled"), "TRUE")
		}
		rule.Confidence = parseConfidence(get(record, "confidence"))
		rule.Count, _ = strconv.Atoi(get(record, "count"))
		rule.Total, _ = strconv.Atoi(get(record, "total"))

		rules = append(rules, rule)
	}

	return rules, nil
}

// parseConfidence accepts "60.00%" as well as a bare fraction such as "0.6".
func parseConfidence(s string) float64 {
	if s == "" {
		return 0
	}
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return 0
		}
		return v / 100
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// LoadRulesFile reads rules from path.
func LoadRulesFile(path string) ([]Rule, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open rule file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rules, err := ReadRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// SaveRulesFile writes rules to path through a temporary file and rename.
func SaveRulesFile(path string, rules []Rule) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create rule directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".rules-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp rule file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteRules(tmp, rules); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp rule file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace rule file: %w", err)
	}
	return nil
}
