// Package literal holds the GraphQL punctuators and keywords the printer emits.
package literal

const (
	COLON          = ":"
	BANG           = "!"
	LINETERMINATOR = "\n"
	SPACE          = " "
	INDENT         = "  "
	COMMA          = ","
	AT             = "@"
	DOLLAR         = "$"
	SPREAD         = "..."
	EQUALS         = "="

	BRACKETOPEN        = "("
	BRACKETCLOSE       = ")"
	SQUAREBRACKETOPEN  = "["
	SQUAREBRACKETCLOSE = "]"
	CURLYBRACKETOPEN   = "{"
	CURLYBRACKETCLOSE  = "}"

	QUERY        = "query"
	MUTATION     = "mutation"
	SUBSCRIPTION = "subscription"
	ON           = "on"
	FRAGMENT     = "fragment"
	NULL         = "null"
	TRUE         = "true"
	FALSE        = "false"

	TYPENAME = "__typename"
	SKIP     = "skip"
	INCLUDE  = "include"
	IF       = "if"
)
