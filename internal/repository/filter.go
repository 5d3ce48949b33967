package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// sqlCondition is a WHERE clause fragment with positional parameters.
type sqlCondition struct {
	Clause string
	Params []any
}

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldUpper
	fieldInt
	fieldTimestamp
)

type filterField struct {
	column string
	kind   fieldKind
}

// filterSchema describes which identifiers an AIP-160 expression may use
// and how they map onto columns.
type filterSchema struct {
	fields map[string]filterField
}

var sessionFilterSchema = filterSchema{fields: map[string]filterField{
	"status":             {"status", fieldUpper},
	"user_id":            {"user_id", fieldString},
	"project_id":         {"project_id", fieldString},
	"module":             {"module", fieldString},
	"task_category":      {"task_category", fieldString},
	"work_category":      {"work_category", fieldString},
	"severity":           {"severity", fieldString},
	"source":             {"source", fieldString},
	"ticket_ref":         {"ticket_ref", fieldUpper},
	"start_time":         {"start_time", fieldTimestamp},
	"end_time":           {"end_time", fieldTimestamp},
	"paused_duration_ms": {"paused_duration_ms", fieldInt},
}}

var workLogFilterSchema = filterSchema{fields: map[string]filterField{
	"session_id":    {"session_id", fieldString},
	"user_id":       {"user_id", fieldString},
	"project_id":    {"project_id", fieldString},
	"module":        {"module", fieldString},
	"task_category": {"task_category", fieldString},
	"work_category": {"work_category", fieldString},
	"severity":      {"severity", fieldString},
	"source":        {"source", fieldString},
	"ticket_ref":    {"ticket_ref", fieldUpper},
	"created_by":    {"created_by", fieldString},
	"start_time":    {"start_time", fieldTimestamp},
	"end_time":      {"end_time", fieldTimestamp},
	"duration_ms":   {"duration_ms", fieldInt},
}}

func (s filterSchema) declarations() (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for name, f := range s.fields {
		var typ *expr.Type
		switch f.kind {
		case fieldInt:
			typ = filtering.TypeInt
		case fieldTimestamp:
			typ = filtering.TypeTimestamp
		default:
			typ = filtering.TypeString
		}
		opts = append(opts, filtering.DeclareIdent(name, typ))
	}
	return filtering.NewDeclarations(opts...)
}

// parse translates an AIP-160 filter expression into a SQL condition.
// An empty expression yields an empty condition. Parse failures are
// validation errors.
func (s filterSchema) parse(filterStr string) (sqlCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return sqlCondition{}, nil
	}

	decls, err := s.declarations()
	if err != nil {
		return sqlCondition{}, fmt.Errorf("create declarations: %w", err)
	}

	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return sqlCondition{}, invalidFilter(err.Error())
	}
	if filter.CheckedExpr == nil {
		return sqlCondition{}, nil
	}

	return s.translateExpr(filter.CheckedExpr.GetExpr())
}

func invalidFilter(msg string) error {
	return apperr.WithMetadata(apperr.CodeValidation, "invalid filter: "+msg,
		map[string]string{"field": "filter"})
}

func (s filterSchema) translateExpr(e *expr.Expr) (sqlCondition, error) {
	if e == nil {
		return sqlCondition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return s.translateCall(kind.CallExpr)
	default:
		return sqlCondition{}, invalidFilter(fmt.Sprintf("unsupported expression type %T", kind))
	}
}

func (s filterSchema) translateCall(call *expr.Expr_Call) (sqlCondition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return s.translateJunction(call.Args, "AND")
	case "_||_", "OR":
		return s.translateJunction(call.Args, "OR")
	case "NOT", "-":
		if len(call.Args) != 1 {
			return sqlCondition{}, invalidFilter("NOT requires 1 argument")
		}
		inner, err := s.translateExpr(call.Args[0])
		if err != nil {
			return sqlCondition{}, err
		}
		return sqlCondition{Clause: "NOT (" + inner.Clause + ")", Params: inner.Params}, nil
	case "_==_", "=":
		return s.translateComparison(call.Args, "=")
	case "_!=_", "!=":
		return s.translateComparison(call.Args, "!=")
	case "_<_", "<":
		return s.translateComparison(call.Args, "<")
	case "_<=_", "<=":
		return s.translateComparison(call.Args, "<=")
	case "_>_", ">":
		return s.translateComparison(call.Args, ">")
	case "_>=_", ">=":
		return s.translateComparison(call.Args, ">=")
	default:
		return sqlCondition{}, invalidFilter("unsupported function " + call.Function)
	}
}

func (s filterSchema) translateJunction(args []*expr.Expr, op string) (sqlCondition, error) {
	if len(args) != 2 {
		return sqlCondition{}, invalidFilter(op + " requires 2 arguments")
	}

	left, err := s.translateExpr(args[0])
	if err != nil {
		return sqlCondition{}, err
	}

	right, err := s.translateExpr(args[1])
	if err != nil {
		return sqlCondition{}, err
	}

	return sqlCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func (s filterSchema) translateComparison(args []*expr.Expr, op string) (sqlCondition, error) {
	if len(args) != 2 {
		return sqlCondition{}, invalidFilter("comparison requires 2 arguments")
	}

	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return sqlCondition{}, invalidFilter("left side of a comparison must be a field")
	}
	name := ident.IdentExpr.GetName()
	field, ok := s.fields[name]
	if !ok {
		return sqlCondition{}, invalidFilter("unknown field " + name)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return sqlCondition{}, err
	}
	if str, ok := value.(string); ok {
		switch field.kind {
		case fieldUpper:
			value = strings.ToUpper(str)
		case fieldTimestamp:
			t, err := time.Parse(time.RFC3339Nano, str)
			if err != nil {
				return sqlCondition{}, invalidFilter("invalid timestamp " + str)
			}
			value = formatTime(t)
		}
	}

	return sqlCondition{
		Clause: fmt.Sprintf("%s %s ?", field.column, op),
		Params: []any{value},
	}, nil
}

func extractValue(e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_CallExpr:
		if kind.CallExpr.Function == "timestamp" && len(kind.CallExpr.Args) == 1 {
			return extractTimestampValue(kind.CallExpr.Args[0])
		}
		return nil, invalidFilter("unsupported function in value position: " + kind.CallExpr.Function)
	default:
		return nil, invalidFilter(fmt.Sprintf("expected constant or timestamp, got %T", kind))
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	switch kind := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return int64(kind.Uint64Value), nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, invalidFilter(fmt.Sprintf("unsupported constant type %T", kind))
	}
}

// extractTimestampValue reformats timestamp("...") into the storage layout
// so comparisons stay lexicographic.
func extractTimestampValue(e *expr.Expr) (string, error) {
	c, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return "", invalidFilter("timestamp argument must be a constant string")
	}
	str, ok := c.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return "", invalidFilter("timestamp argument must be a string")
	}
	t, err := time.Parse(time.RFC3339Nano, str.StringValue)
	if err != nil {
		return "", invalidFilter("invalid timestamp " + str.StringValue)
	}
	return formatTime(t), nil
}
