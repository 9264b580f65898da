package thread

import (
	"fmt"
	"time"

	"github.com/tracelit/tracelit/entity"
	"github.com/tracelit/tracelit/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type (
	FilterField    string
	FilterOperator string
)

const (
	FieldCreatedAt              FilterField = "createdAt"
	FieldEnvironment            FilterField = "environment"
	FieldParticipantId          FilterField = "participantId"
	FieldParticipantIdentifiers FilterField = "participantIdentifiers"
	FieldSearch                 FilterField = "search"
	FieldStepType               FilterField = "stepType"
	FieldScoreValue             FilterField = "scoreValue"
	FieldTags                   FilterField = "tags"
	FieldTokenCount             FilterField = "tokenCount"
)

const (
	OpEq     FilterOperator = "eq"
	OpNeq    FilterOperator = "neq"
	OpLike   FilterOperator = "like"
	OpNlike  FilterOperator = "nlike"
	OpIlike  FilterOperator = "ilike"
	OpNilike FilterOperator = "nilike"
	OpIn     FilterOperator = "in"
	OpNin    FilterOperator = "nin"
	OpGt     FilterOperator = "gt"
	OpGte    FilterOperator = "gte"
	OpLt     FilterOperator = "lt"
	OpLte    FilterOperator = "lte"
)

// allowedOperators is the closed set of filterable field/operator
// combinations. Anything outside it fails NewFilter instead of silently
// dropping out of the query.
var allowedOperators = map[FilterField][]FilterOperator{
	FieldCreatedAt:              {OpGt, OpGte, OpLt, OpLte},
	FieldEnvironment:            {OpEq, OpNeq, OpLike, OpNlike, OpIlike, OpNilike},
	FieldParticipantId:          {OpEq, OpNeq, OpIn, OpNin},
	FieldParticipantIdentifiers: {OpIn, OpNin},
	FieldSearch:                 {OpLike, OpIlike},
	FieldStepType:               {OpEq, OpNeq, OpIn, OpNin},
	FieldScoreValue:             {OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte},
	FieldTags:                   {OpIn, OpNin},
	FieldTokenCount:             {OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte},
}

// Filter is one conjunct of a thread listing query, validated at
// construction.
type Filter struct {
	field FilterField
	op    FilterOperator

	stringValue string
	timeValue   time.Time
	numberValue float64
	listValue   []string
}

func NewFilter(field FilterField, op FilterOperator, value any) (Filter, error) {
	ops, ok := allowedOperators[field]
	if !ok {
		return Filter{}, errors.Wrapf(errors.ErrInvalidParams, "unknown filter field %q", field)
	}

	allowed := false
	for _, o := range ops {
		if o == op {
			allowed = true
			break
		}
	}
	if !allowed {
		return Filter{}, errors.Wrapf(errors.ErrInvalidParams, "operator %q is not valid for field %q", op, field)
	}

	f := Filter{field: field, op: op}
	switch op {
	case OpIn, OpNin:
		list, err := toStringList(value)
		if err != nil {
			return Filter{}, errors.Wrapf(errors.ErrInvalidParams, "field %q operator %q needs a list value: %v", field, op, err)
		}
		f.listValue = list
	default:
		switch field {
		case FieldCreatedAt:
			t, err := toTime(value)
			if err != nil {
				return Filter{}, errors.Wrapf(errors.ErrInvalidParams, "field %q needs a timestamp value: %v", field, err)
			}
			f.timeValue = t
		case FieldScoreValue, FieldTokenCount:
			n, err := toNumber(value)
			if err != nil {
				return Filter{}, errors.Wrapf(errors.ErrInvalidParams, "field %q needs a number value: %v", field, err)
			}
			f.numberValue = n
		default:
			s, ok := value.(string)
			if !ok {
				return Filter{}, errors.Wrapf(errors.ErrInvalidParams, "field %q needs a string value", field)
			}
			f.stringValue = s
		}
	}

	return f, nil
}

func (f Filter) Field() FilterField       { return f.field }
func (f Filter) Operator() FilterOperator { return f.op }

// tokenCountExpr sums the generation token counts of a thread's steps.
// json_extract is understood by sqlite and mysql; postgres spells JSON
// field access with the ->> operator.
func tokenCountExpr(dialect string) string {
	extract := "json_extract(steps.generation, '$.tokenCount')"
	if dialect == "postgres" {
		extract = "(steps.generation ->> 'tokenCount')::numeric"
	}
	return fmt.Sprintf("(SELECT COALESCE(SUM(%s), 0) FROM steps WHERE steps.thread_id = threads.id)", extract)
}

func (f Filter) apply(tx *gorm.DB, stmt *gorm.DB) *gorm.DB {
	switch f.field {
	case FieldCreatedAt:
		return stmt.Where(fmt.Sprintf("threads.created_at %s ?", f.op.sql()), f.timeValue)

	case FieldEnvironment:
		return applyStringOp(stmt, "threads.environment", f.op, f.stringValue)

	case FieldSearch:
		pattern := "%" + f.stringValue + "%"
		if f.op == OpIlike {
			return stmt.Where("LOWER(threads.name) LIKE LOWER(?)", pattern)
		}
		return stmt.Where("threads.name LIKE ?", pattern)

	case FieldParticipantId, FieldParticipantIdentifiers:
		switch f.op {
		case OpEq:
			return stmt.Where("threads.participant_id = ?", f.stringValue)
		case OpNeq:
			return stmt.Where("threads.participant_id <> ?", f.stringValue)
		default:
			// Membership values are participant identifiers; resolve them
			// to ids first.
			sub := tx.Session(&gorm.Session{NewDB: true}).
				Model(&entity.Participant{}).
				Select("id").
				Where("identifier IN ?", f.listValue)
			if f.op == OpIn {
				return stmt.Where("threads.participant_id IN (?)", sub)
			}
			return stmt.Where("threads.participant_id NOT IN (?)", sub)
		}

	case FieldStepType:
		types := f.listValue
		if f.op == OpEq || f.op == OpNeq {
			types = []string{f.stringValue}
		}
		cond := "EXISTS (SELECT 1 FROM steps WHERE steps.thread_id = threads.id AND steps.type IN ?)"
		if f.op == OpNeq || f.op == OpNin {
			cond = "NOT " + cond
		}
		return stmt.Where(cond, types)

	case FieldScoreValue:
		cond := fmt.Sprintf(
			"EXISTS (SELECT 1 FROM scores JOIN steps ON scores.step_id = steps.id WHERE steps.thread_id = threads.id AND scores.value %s ?)",
			f.op.sql())
		return stmt.Where(cond, f.numberValue)

	case FieldTags:
		cond := tx.Session(&gorm.Session{NewDB: true})
		for i, tag := range f.listValue {
			expr := datatypes.JSONArrayQuery("tags").Contains(tag)
			if i == 0 {
				cond = cond.Where(expr)
			} else {
				cond = cond.Or(expr)
			}
		}
		if f.op == OpNin {
			return stmt.Not(cond)
		}
		return stmt.Where(cond)

	case FieldTokenCount:
		return stmt.Where(fmt.Sprintf("%s %s ?", tokenCountExpr(tx.Dialector.Name()), f.op.sql()), f.numberValue)
	}

	return stmt
}

func applyStringOp(stmt *gorm.DB, column string, op FilterOperator, value string) *gorm.DB {
	switch op {
	case OpEq:
		return stmt.Where(column+" = ?", value)
	case OpNeq:
		return stmt.Where(column+" <> ?", value)
	case OpLike:
		return stmt.Where(column+" LIKE ?", value)
	case OpNlike:
		return stmt.Where(column+" NOT LIKE ?", value)
	case OpIlike:
		return stmt.Where("LOWER("+column+") LIKE LOWER(?)", value)
	case OpNilike:
		return stmt.Where("LOWER("+column+") NOT LIKE LOWER(?)", value)
	}
	return stmt
}

func (o FilterOperator) sql() string {
	switch o {
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	}
	return "="
}

func toStringList(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("unsupported list element %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("got %T", value)
	}
}

func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("got %T", value)
	}
}

func toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("got %T", value)
	}
}
