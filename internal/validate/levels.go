package validate

// checkSpec binds a check to its required flag for one level. A required
// check's FAIL flips the run verdict; warn-level checks never do.
type checkSpec struct {
	name     string
	required bool
}

// Check names, in pipeline order.
const (
	CheckSyntax   = "syntax"
	CheckImports  = "imports"
	CheckConflict = "conflicts"
	CheckCritical = "critical-impact"
	CheckTests    = "tests"
	CheckQuality  = "quality"
	CheckDocs     = "docs"
	CheckSecurity = "security"
)

// levelChecks defines the ordered pipeline per level. Every check in the
// list runs; there is no short-circuiting, so a report always covers the
// whole pipeline.
var levelChecks = map[Level][]checkSpec{
	LevelMinimal: {
		{CheckSyntax, true},
		{CheckImports, false},
		{CheckConflict, true},
		{CheckCritical, true},
	},
	LevelStandard: {
		{CheckSyntax, true},
		{CheckImports, true},
		{CheckConflict, true},
		{CheckCritical, true},
		{CheckTests, true},
		{CheckQuality, false},
		{CheckDocs, false},
		{CheckSecurity, false},
	},
	LevelStrict: {
		{CheckSyntax, true},
		{CheckImports, true},
		{CheckConflict, true},
		{CheckCritical, true},
		{CheckTests, true},
		{CheckQuality, false},
		{CheckDocs, false},
		{CheckSecurity, true},
	},
}
