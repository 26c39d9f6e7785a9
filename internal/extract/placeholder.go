package extract

import (
	"fmt"
	"strings"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
)

// numericArgNames is the closed set of interpolation identifiers recognized
// as numeric arguments.
var numericArgNames = map[string]bool{
	"minPrice": true,
	"maxPrice": true,
	"limit":    true,
	"offset":   true,
	"price":    true,
	"count":    true,
}

// classifyInterpolation decides which of the six closed placeholder shapes
// a host expression takes, based only on the surrounding GraphQL text
// (precededByEllipsis, wrappedInQuotes, position) and the expression text
// itself.
func classifyInterpolation(exprText string, precededByEllipsis, wrappedInQuotes, isOperationNamePosition, isFieldNamePosition bool) opcatalog.InterpolationKind {
	switch {
	case precededByEllipsis:
		return opcatalog.InterpolationFragmentRef
	case isOperationNamePosition:
		return opcatalog.InterpolationQueryName
	case isFieldNamePosition:
		return opcatalog.InterpolationFieldRef
	case wrappedInQuotes:
		return opcatalog.InterpolationStringExpr
	case numericArgNames[strings.TrimSpace(lastIdentifierSegment(exprText))]:
		return opcatalog.InterpolationNumericExpr
	default:
		return opcatalog.InterpolationIdentifier
	}
}

// lastIdentifierSegment returns the trailing dotted-path segment of an
// expression, e.g. "args.minPrice" -> "minPrice", used to test an
// interpolation's bare variable name against the numeric set.
func lastIdentifierSegment(expr string) string {
	expr = strings.TrimSpace(expr)
	if idx := strings.LastIndexAny(expr, ".?:"); idx >= 0 {
		return strings.TrimSpace(expr[idx+1:])
	}
	return expr
}

// placeholderText returns the deterministic, grammatically-typed stand-in
// substituted for interpolation index i of the given kind, so the
// surrounding template literal still parses as GraphQL.
func placeholderText(kind opcatalog.InterpolationKind, i int) string {
	switch kind {
	case opcatalog.InterpolationFragmentRef:
		return fmt.Sprintf("phFrag%d", i)
	case opcatalog.InterpolationStringExpr:
		return fmt.Sprintf("\"phStr%d\"", i)
	case opcatalog.InterpolationNumericExpr:
		return fmt.Sprintf("%d", 900000+i)
	case opcatalog.InterpolationQueryName:
		return fmt.Sprintf("PhQueryName%d", i)
	case opcatalog.InterpolationFieldRef:
		return fmt.Sprintf("phField%d", i)
	default: // InterpolationIdentifier
		return fmt.Sprintf("phIdent%d", i)
	}
}

// PlaceholderToken is the bare token a placeholder contributes to the
// literal (without surrounding quotes), exported so later stages
// (internal/transform, internal/apply) can recognize a given
// interpolation's substituted text again downstream of extraction.
func PlaceholderToken(kind opcatalog.InterpolationKind, i int) string {
	text := placeholderText(kind, i)
	return strings.Trim(text, "\"")
}
