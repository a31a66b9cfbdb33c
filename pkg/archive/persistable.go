package archive

import (
	"fmt"
	"reflect"
	"strings"
)

// Persistable is a struct whose exported fields carry `column` tags.
type Persistable interface {
	TableName() string
}

type field struct {
	column string
	index  int
}

// fieldsOf lists the persisted fields of obj in declaration order.
// Fields tagged persist:"false" or without a column tag are skipped.
func fieldsOf(obj Persistable) []field {
	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var out []field
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("persist") == "false" {
			continue
		}
		col := f.Tag.Get("column")
		if col == "" {
			continue
		}
		out = append(out, field{column: col, index: i})
	}
	return out
}

func columnNames(fields []field) []string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.column
	}
	return cols
}

// insertSQL builds an INSERT with ? placeholders for every persisted column.
func insertSQL(obj Persistable) string {
	fields := fieldsOf(obj)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		obj.TableName(), strings.Join(columnNames(fields), ", "), placeholders)
}

// selectSQL builds a SELECT of every persisted column with an optional trailing clause.
func selectSQL(obj Persistable, clause string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columnNames(fieldsOf(obj)), ", "), obj.TableName())
	if clause != "" {
		q += " " + clause
	}
	return q
}

// valuesOf returns the field values of obj in column order.
func valuesOf(obj Persistable) []any {
	v := reflect.Indirect(reflect.ValueOf(obj))
	fields := fieldsOf(obj)
	values := make([]any, len(fields))
	for i, f := range fields {
		values[i] = v.Field(f.index).Interface()
	}
	return values
}

// scanTargets returns pointers to the fields of obj, which must be a pointer, in column order.
func scanTargets(obj Persistable) []any {
	v := reflect.ValueOf(obj).Elem()
	fields := fieldsOf(obj)
	targets := make([]any, len(fields))
	for i, f := range fields {
		targets[i] = v.Field(f.index).Addr().Interface()
	}
	return targets
}
