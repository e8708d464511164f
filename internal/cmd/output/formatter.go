// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"github.com/syncals/syncals/internal/cmd/table"
)

// Format names an output format.
type Format string

// Output formats. Wide is a table whose cells are never clipped.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatWide  Format = "wide"
)

// Data is a rendered table.
type Data = table.Data

// Formatter writes data in one format.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// NewFormatter returns the formatter for format. Unknown formats render
// as tables.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatWide:
		return &TableFormatter{Wide: true}
	default:
		return &TableFormatter{}
	}
}

// JSONFormatter writes JSON.
type JSONFormatter struct {
	Indent string
}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(data)
}

// YAMLFormatter writes YAML with unindented sequences.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	b, err := yaml.MarshalWithOptions(data, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// narrowCell is the display width a cell is clipped to outside wide mode.
// Subjects and descriptions are often full-width Japanese, which takes two
// columns per character.
const narrowCell = 48

// TableFormatter writes tables. Structs and slices of structs are turned
// into tables by reflection; anything else falls back to JSON.
type TableFormatter struct {
	Wide bool
}

// Format implements Formatter.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case Data:
		return f.render(w, v)
	case []Data:
		for i, d := range v {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if err := f.render(w, d); err != nil {
				return err
			}
		}
		return nil
	}
	if d := f.convertToTableData(data); d != nil {
		return f.render(w, *d)
	}
	return (&JSONFormatter{Indent: "  "}).Format(w, data)
}

func (f *TableFormatter) render(w io.Writer, data Data) error {
	if len(data.Rows) == 0 && len(data.Headers) > 0 {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}

	var cfg tablewriter.Config
	if len(data.ColumnAlignment) > 0 {
		align := make([]tw.Align, len(data.ColumnAlignment))
		for i, a := range data.ColumnAlignment {
			align[i] = twAlign(a)
		}
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: align}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: align}
	}
	t := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))

	if len(data.Headers) > 0 {
		t.Header(anys(data.Headers, nil)...)
	}
	clip := clipCell
	if f.Wide {
		clip = nil
	}
	for _, row := range data.Rows {
		if err := t.Append(anys(row, clip)...); err != nil {
			return err
		}
	}
	return t.Render()
}

func twAlign(a table.Align) tw.Align {
	switch a {
	case table.AlignLeft:
		return tw.AlignLeft
	case table.AlignCenter:
		return tw.AlignCenter
	case table.AlignRight:
		return tw.AlignRight
	default:
		return tw.Skip
	}
}

func anys(cells []string, fn func(string) string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		if fn != nil {
			c = fn(c)
		}
		out[i] = c
	}
	return out
}

// clipCell shortens s to narrowCell display columns, counting East Asian
// wide and fullwidth runes as two.
func clipCell(s string) string {
	cols := 0
	for i, r := range s {
		w := 1
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w = 2
		}
		if cols+w > narrowCell-1 {
			return s[:i] + "…"
		}
		cols += w
	}
	return s
}

// DetectFormat returns the explicit format, or table on a terminal and
// JSON when stdout is piped.
func DetectFormat(explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// ParseFormat validates s. The empty string means auto-detect.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(s))
	switch format {
	case FormatTable, FormatJSON, FormatYAML, FormatWide, "":
		return format, nil
	}
	return "", fmt.Errorf("invalid format %q: must be one of: table, json, yaml, wide", s)
}

// convertToTableData renders structs as a property table and slices of
// structs as one row per element. Other values yield nil.
func (f *TableFormatter) convertToTableData(data any) *Data {
	v := reflect.Indirect(reflect.ValueOf(data))
	switch {
	case v.Kind() == reflect.Struct:
		var rows [][]string
		for i, name := range columnNames(v.Type()) {
			if name != "" {
				rows = append(rows, []string{name, cell(v.Field(i))})
			}
		}
		return &Data{Headers: []string{"Property", "Value"}, Rows: rows}

	case v.Kind() == reflect.Slice && v.Len() > 0:
		elem := v.Type().Elem()
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return nil
		}
		names := columnNames(elem)
		out := &Data{}
		for _, name := range names {
			if name != "" {
				out.Headers = append(out.Headers, name)
			}
		}
		for i := 0; i < v.Len(); i++ {
			item := reflect.Indirect(v.Index(i))
			var row []string
			for j, name := range names {
				if name == "" {
					continue
				}
				if item.IsValid() {
					row = append(row, cell(item.Field(j)))
				} else {
					row = append(row, "-")
				}
			}
			out.Rows = append(out.Rows, row)
		}
		return out
	}
	return nil
}

// columnNames titles each exported field by its json tag. Unexported and
// json:"-" fields get an empty name.
func columnNames(t reflect.Type) []string {
	caser := cases.Title(language.English)
	names := make([]string, t.NumField())
	for i := range names {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch tag {
		case "-":
			continue
		case "":
			names[i] = field.Name
		default:
			names[i] = caser.String(strings.ReplaceAll(tag, "_", " "))
		}
	}
	return names
}

func cell(v reflect.Value) string {
	return fmt.Sprintf("%v", v.Interface())
}
