package abap

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MemberKind classifies how a dependent object uses a member of its
// dependency.
type MemberKind int

const (
	MemberUnknown MemberKind = iota
	MemberMethod
	MemberAttribute
	MemberConstant
	MemberType
	MemberConstructor
	MemberInterface
	MemberForm
	MemberFunction
	MemberSelect
	MemberInclude
	MemberSubmit
)

// String returns the lowercase kind code used in output documents.
func (k MemberKind) String() string {
	switch k {
	case MemberMethod:
		return "method"
	case MemberAttribute:
		return "attribute"
	case MemberConstant:
		return "constant"
	case MemberType:
		return "type"
	case MemberConstructor:
		return "constructor"
	case MemberInterface:
		return "interface"
	case MemberForm:
		return "form"
	case MemberFunction:
		return "function"
	case MemberSelect:
		return "select"
	case MemberInclude:
		return "include"
	case MemberSubmit:
		return "submit"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind code as a JSON string.
func (k MemberKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses a kind code; unknown codes map to MemberUnknown.
func (k *MemberKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = ParseMemberKind(s)
	return nil
}

// ParseMemberKind converts a kind code (as produced by
// [MemberKind.String]) back to a MemberKind.
func ParseMemberKind(s string) MemberKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "method":
		return MemberMethod
	case "attribute":
		return MemberAttribute
	case "constant":
		return MemberConstant
	case "type":
		return MemberType
	case "constructor":
		return MemberConstructor
	case "interface":
		return MemberInterface
	case "form":
		return MemberForm
	case "function":
		return MemberFunction
	case "select":
		return MemberSelect
	case "include":
		return MemberInclude
	case "submit":
		return MemberSubmit
	default:
		return MemberUnknown
	}
}

// MemberRef records one specific member of a dependency that the source
// references, with the line of first use.
type MemberRef struct {
	Name string     `json:"name"`
	Kind MemberKind `json:"kind"`
	Line int        `json:"line"`
}

// Dependency is one referenced repository object extracted from source,
// with the set of members the source touches. Repeated references to the
// same object are merged into a single Dependency.
type Dependency struct {
	Name    string      // canonical (uppercase) target name
	Type    ObjectType  // extractor's classification, possibly a guess
	Members []MemberRef // deduplicated by (name, kind)
}

// Statement patterns. ABAP is case-insensitive; statements are matched
// against the uppercase text of one period-terminated statement.
var (
	reInherit    = regexp.MustCompile(`\bINHERITING\s+FROM\s+([/\w]+)`)
	reIntfImpl   = regexp.MustCompile(`\bMETHOD\s+([/\w]+)~(\w+)`)
	reIntfAlias  = regexp.MustCompile(`([/\w]+)~(\w+)\s*\(`)
	reStaticCall = regexp.MustCompile(`([/\w]+)=>(\w+)(\s*\()?`)
	reNew        = regexp.MustCompile(`\bNEW\s+([/\w]+)\s*\(`)
	reCreateObj  = regexp.MustCompile(`\bCREATE\s+OBJECT\s+\w+\s+TYPE\s+([/\w]+)`)
	reCast       = regexp.MustCompile(`\bCAST\s+([/\w]+)\s*\(`)
	reRaiseNew   = regexp.MustCompile(`\bRAISE\s+EXCEPTION\s+(?:TYPE|NEW)\s+([/\w]+)`)
	reTypeRef    = regexp.MustCompile(`\bTYPE\s+REF\s+TO\s+([/\w]+)`)
	reTypeTable  = regexp.MustCompile(`\b(?:TYPE|LIKE)\s+(?:STANDARD\s+|SORTED\s+|HASHED\s+)?TABLE\s+OF\s+([/\w]+)`)
	reTypeField  = regexp.MustCompile(`\b(?:TYPE|LIKE)\s+([/\w]+)-(\w+)`)
	reTypePlain  = regexp.MustCompile(`\b(?:TYPE|LIKE)\s+([/\w]+)`)
	reSelect     = regexp.MustCompile(`\b(?:FROM|INTO|JOIN)\s+([/\w]+)`)
	reModify     = regexp.MustCompile(`\b(?:INSERT\s+INTO|UPDATE|MODIFY|DELETE\s+FROM)\s+([/\w]+)`)
	reCallFunc   = regexp.MustCompile(`\bCALL\s+FUNCTION\s+'([/\w]+)'`)
	rePerform    = regexp.MustCompile(`\bPERFORM\s+(\w+)(?:\(\w+\))?\s+IN\s+PROGRAM\s+([/\w]+)`)
	reSubmit     = regexp.MustCompile(`\bSUBMIT\s+([/\w]+)`)
	reInclStruct = regexp.MustCompile(`\bINCLUDE\s+(?:TYPE|STRUCTURE)\s+([/\w]+)`)
	reInclude    = regexp.MustCompile(`\bINCLUDE\s+([/\w]+)`)
)

// builtinTypes are predefined ABAP types and system names that must never
// surface as dependencies even though they follow TYPE/LIKE tokens.
var builtinTypes = map[string]bool{
	"C": true, "N": true, "D": true, "T": true, "I": true, "INT8": true,
	"P": true, "F": true, "X": true, "B": true, "S": true,
	"STRING": true, "XSTRING": true, "DECFLOAT16": true, "DECFLOAT34": true,
	"UTCLONG": true, "ANY": true, "DATA": true, "OBJECT": true,
	"SIMPLE": true, "CLIKE": true, "CSEQUENCE": true, "NUMERIC": true,
	"XSEQUENCE": true, "DECFLOAT": true, "TABLE": true, "LINE": true,
	"SY": true, "SYST": true, "ABAP_BOOL": true, "ABAP_TRUE": true,
	"ABAP_FALSE": true, "ABAP_UNDEFINED": true, "SCREEN": true,
	"STANDARD": true, "SORTED": true, "HASHED": true, "REF": true,
	"RANGE": true, "BEGIN": true, "END": true, "OF": true, "TO": true,
}

// localPrefixes mark names that are local to the compilation unit:
// local classes, interfaces and types, plus the customary variable
// prefixes. None of these are repository objects.
var localPrefixes = []string{
	"LCL_", "LIF_", "LTY_", "TY_",
	"LV_", "LS_", "LT_", "LO_", "LR_",
	"GV_", "GS_", "GT_", "GO_",
	"MV_", "MS_", "MT_", "MO_",
	"IV_", "IS_", "IT_", "IO_",
	"EV_", "ES_", "ET_", "EO_",
	"CV_", "CS_", "CT_",
	"RV_", "RS_", "RT_", "RO_",
}

func isLocalName(name string) bool {
	for _, p := range localPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// skippable reports whether a captured name must not be recorded as a
// dependency: built-in types, local names, and single letters.
func skippable(name string) bool {
	if len(name) <= 1 {
		return true
	}
	return builtinTypes[name] || isLocalName(name)
}

// extraction accumulates merged dependencies in first-seen order.
type extraction struct {
	byName map[string]*Dependency
	order  []string
}

func newExtraction() *extraction {
	return &extraction{byName: map[string]*Dependency{}}
}

// add records a reference to name with the given classification and
// member. The first classification wins; only a syntax-confident
// interface classification upgrades it later. Duplicate members are
// dropped.
func (e *extraction) add(name string, typ ObjectType, member MemberRef) {
	name = NormalizeName(name)
	if name == "" || skippable(name) {
		return
	}
	dep, ok := e.byName[name]
	if !ok {
		dep = &Dependency{Name: name, Type: typ}
		e.byName[name] = dep
		e.order = append(e.order, name)
	} else if typ == TypeInterface {
		dep.Type = TypeInterface
	}
	if member.Name == "" {
		return
	}
	member.Name = NormalizeName(member.Name)
	for _, m := range dep.Members {
		if m.Name == member.Name && m.Kind == member.Kind {
			return
		}
	}
	dep.Members = append(dep.Members, member)
}

func (e *extraction) result() []Dependency {
	out := make([]Dependency, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, *e.byName[name])
	}
	return out
}

// Extract scans ABAP source and returns every referenced repository
// object with the members used. Comments are stripped, statements are
// split on their terminating period, and references are merged per
// target. Classification is best-effort: interface references detected
// from syntax are authoritative, everything else may need external
// resolution.
func Extract(source string) []Dependency {
	ex := newExtraction()
	for _, st := range splitStatements(source) {
		scanStatement(ex, st.text, st.line)
	}
	return ex.result()
}

// staticMemberKind classifies the member of a NAME=>MEMBER reference.
func staticMemberKind(member string, called bool) MemberKind {
	if called {
		if member == "CONSTRUCTOR" || member == "CLASS_CONSTRUCTOR" {
			return MemberConstructor
		}
		return MemberMethod
	}
	if strings.HasPrefix(member, "C_") || strings.HasPrefix(member, "CO_") {
		return MemberConstant
	}
	return MemberAttribute
}

func scanStatement(ex *extraction, text string, line int) {
	up := strings.ToUpper(strings.TrimSpace(text))

	for _, m := range reInherit.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeClass, MemberRef{Name: m[1], Kind: MemberType, Line: line})
	}
	if rest, ok := strings.CutPrefix(up, "INTERFACES"); ok {
		// Chained form: INTERFACES: zif_a, zif_b DATA VALUES ... .
		rest = strings.TrimPrefix(strings.TrimSpace(rest), ":")
		for _, part := range strings.Split(strings.TrimSuffix(rest, "."), ",") {
			fields := strings.Fields(part)
			if len(fields) > 0 {
				ex.add(fields[0], TypeInterface, MemberRef{Name: fields[0], Kind: MemberInterface, Line: line})
			}
		}
	}
	for _, m := range reIntfImpl.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeInterface, MemberRef{Name: m[2], Kind: MemberMethod, Line: line})
	}
	for _, m := range reIntfAlias.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeInterface, MemberRef{Name: m[2], Kind: MemberMethod, Line: line})
	}
	for _, m := range reStaticCall.FindAllStringSubmatch(up, -1) {
		called := m[3] != ""
		typ := TypeClass
		if !called && LooksLikeInterface(m[1]) {
			typ = TypeInterface
		}
		ex.add(m[1], typ, MemberRef{Name: m[2], Kind: staticMemberKind(m[2], called), Line: line})
	}
	for _, m := range reNew.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeClass, MemberRef{Name: "CONSTRUCTOR", Kind: MemberConstructor, Line: line})
	}
	for _, m := range reCreateObj.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeClass, MemberRef{Name: "CONSTRUCTOR", Kind: MemberConstructor, Line: line})
	}
	for _, m := range reCast.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], GuessType(m[1]), MemberRef{Name: m[1], Kind: MemberType, Line: line})
	}
	for _, m := range reRaiseNew.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeClass, MemberRef{Name: "CONSTRUCTOR", Kind: MemberConstructor, Line: line})
	}

	// Typed declarations. Specific forms (table-of, field path, ref-to)
	// consume their span before the plain TYPE/LIKE scan so a construct
	// is classified exactly once; constructor and exception statements
	// carry TYPE tokens of their own and are masked out entirely.
	masked := reCreateObj.ReplaceAllString(up, " ")
	masked = reRaiseNew.ReplaceAllString(masked, " ")
	for _, m := range reTypeTable.FindAllStringSubmatch(masked, -1) {
		ex.add(m[1], TypeTable, MemberRef{Name: m[1], Kind: MemberType, Line: line})
	}
	masked = reTypeTable.ReplaceAllString(masked, " ")
	for _, m := range reTypeField.FindAllStringSubmatch(masked, -1) {
		ex.add(m[1], TypeTable, MemberRef{Name: m[2], Kind: MemberAttribute, Line: line})
	}
	masked = reTypeField.ReplaceAllString(masked, " ")
	for _, m := range reTypeRef.FindAllStringSubmatch(masked, -1) {
		ex.add(m[1], GuessType(m[1]), MemberRef{Name: m[1], Kind: MemberType, Line: line})
	}
	masked = reTypeRef.ReplaceAllString(masked, " ")
	for _, m := range reTypePlain.FindAllStringSubmatch(masked, -1) {
		ex.add(m[1], TypeDataElement, MemberRef{Name: m[1], Kind: MemberType, Line: line})
	}

	// Database access.
	if strings.Contains(up, "SELECT") {
		for _, m := range reSelect.FindAllStringSubmatch(up, -1) {
			if m[0][0] == 'I' { // INTO targets are host variables
				continue
			}
			ex.add(m[1], TypeTable, MemberRef{Name: m[1], Kind: MemberSelect, Line: line})
		}
	}
	for _, m := range reModify.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeTable, MemberRef{Name: m[1], Kind: MemberSelect, Line: line})
	}

	for _, m := range reCallFunc.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeFunctionModule, MemberRef{Name: m[1], Kind: MemberFunction, Line: line})
	}
	for _, m := range rePerform.FindAllStringSubmatch(up, -1) {
		ex.add(m[2], TypeProgram, MemberRef{Name: m[1], Kind: MemberForm, Line: line})
	}
	for _, m := range reSubmit.FindAllStringSubmatch(up, -1) {
		ex.add(m[1], TypeProgram, MemberRef{Name: m[1], Kind: MemberSubmit, Line: line})
	}
	if m := reInclStruct.FindStringSubmatch(up); m != nil {
		ex.add(m[1], TypeStructure, MemberRef{Name: m[1], Kind: MemberInclude, Line: line})
	} else if strings.HasPrefix(up, "INCLUDE ") {
		for _, m := range reInclude.FindAllStringSubmatch(up, -1) {
			ex.add(m[1], TypeInclude, MemberRef{Name: m[1], Kind: MemberInclude, Line: line})
		}
	}
}

// statement is one period-terminated ABAP statement with the 1-based
// line it starts on.
type statement struct {
	text string
	line int
}

// splitStatements strips comments and splits source into statements.
// Full-line comments start with '*' in column one; inline comments start
// at an unquoted '"'. Statements end at a period outside a string
// literal and may span lines; string literals never do.
func splitStatements(source string) []statement {
	var (
		out     []statement
		buf     strings.Builder
		startLn = 1
	)
	flush := func() {
		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text != "" {
			out = append(out, statement{text: text, line: startLn})
		}
	}
	lines := strings.Split(source, "\n")
	for i, raw := range lines {
		ln := i + 1
		if strings.HasPrefix(raw, "*") {
			continue
		}
		line := stripInlineComment(raw)
		inString := false
		for j := 0; j < len(line); j++ {
			ch := line[j]
			switch {
			case ch == '\'':
				inString = !inString
				buf.WriteByte(ch)
			case ch == '.' && !inString:
				buf.WriteByte(ch)
				flush()
				startLn = ln
			default:
				buf.WriteByte(ch)
			}
		}
		buf.WriteByte(' ')
		if strings.TrimSpace(buf.String()) == "" {
			buf.Reset()
			startLn = ln + 1
		}
	}
	flush()
	return out
}

// stripInlineComment removes a trailing "-comment, honoring string
// literals so quotes inside text don't start a comment.
func stripInlineComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\'':
			inString = !inString
		case '"':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}
