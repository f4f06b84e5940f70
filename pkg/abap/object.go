// Package abap models ABAP repository objects and extracts dependencies
// from raw ABAP source.
//
// The package is the domain leaf of abapdoc: it knows object categories,
// the customer-namespace naming convention, and the statement patterns
// that reference other repository objects. It performs no I/O; fetching
// source and resolving ambiguous types are the ADT client's job.
package abap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ObjectType is the closed set of repository object categories abapdoc
// understands. Dependencies whose resolved type is not relevant (see
// [ObjectType.Relevant]) are discarded during graph construction.
type ObjectType int

const (
	// TypeUnknown is the zero value for unrecognized categories.
	TypeUnknown ObjectType = iota

	// Code objects.
	TypeClass
	TypeInterface
	TypeProgram
	TypeInclude
	TypeFunctionGroup
	TypeFunctionModule

	// Data-model objects.
	TypeTable
	TypeStructure
	TypeView
	TypeCDSView
	TypeDataElement
	TypeDomain

	// Categories abapdoc recognizes but never models.
	TypePackage
	TypeTransaction
	TypeMessageClass
)

// String returns the lowercase category code used in output documents.
func (t ObjectType) String() string {
	switch t {
	case TypeClass:
		return "class"
	case TypeInterface:
		return "interface"
	case TypeProgram:
		return "program"
	case TypeInclude:
		return "include"
	case TypeFunctionGroup:
		return "function_group"
	case TypeFunctionModule:
		return "function"
	case TypeTable:
		return "table"
	case TypeStructure:
		return "structure"
	case TypeView:
		return "view"
	case TypeCDSView:
		return "cds_view"
	case TypeDataElement:
		return "data_element"
	case TypeDomain:
		return "domain"
	case TypePackage:
		return "package"
	case TypeTransaction:
		return "transaction"
	case TypeMessageClass:
		return "message_class"
	default:
		return "unknown"
	}
}

// Relevant reports whether objects of this category are worth modeling
// in a dependency graph. Code and data-model categories are relevant;
// organizational categories (packages, transactions, message classes)
// and unknown types are not.
func (t ObjectType) Relevant() bool {
	switch t {
	case TypeClass, TypeInterface, TypeProgram, TypeInclude,
		TypeFunctionGroup, TypeFunctionModule,
		TypeTable, TypeStructure, TypeView, TypeCDSView,
		TypeDataElement, TypeDomain:
		return true
	case TypePackage, TypeTransaction, TypeMessageClass, TypeUnknown:
		return false
	default:
		return false
	}
}

// HasSource reports whether objects of this category have a plain-text
// source representation. Data elements and domains are maintained in
// form-based editors and cannot be fetched as source.
func (t ObjectType) HasSource() bool {
	switch t {
	case TypeClass, TypeInterface, TypeProgram, TypeInclude,
		TypeFunctionGroup, TypeFunctionModule,
		TypeTable, TypeStructure, TypeView, TypeCDSView:
		return true
	default:
		return false
	}
}

// MarshalJSON renders the category code as a JSON string.
func (t ObjectType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses a category code; unknown codes map to TypeUnknown.
func (t *ObjectType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseType(s)
	return nil
}

// ParseType converts a category code (as produced by [ObjectType.String])
// back to an ObjectType. Unrecognized codes map to TypeUnknown.
func ParseType(s string) ObjectType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class":
		return TypeClass
	case "interface":
		return TypeInterface
	case "program":
		return TypeProgram
	case "include":
		return TypeInclude
	case "function_group":
		return TypeFunctionGroup
	case "function":
		return TypeFunctionModule
	case "table":
		return TypeTable
	case "structure":
		return TypeStructure
	case "view":
		return TypeView
	case "cds_view":
		return TypeCDSView
	case "data_element":
		return TypeDataElement
	case "domain":
		return TypeDomain
	case "package":
		return TypePackage
	case "transaction":
		return TypeTransaction
	case "message_class":
		return TypeMessageClass
	default:
		return TypeUnknown
	}
}

// adtTypeCodes maps ADT repository type identifiers to object categories.
// ADT reports types as "GROUP/SUBTYPE" (e.g. "CLAS/OC"); only the group
// matters for classification.
var adtTypeCodes = map[string]ObjectType{
	"CLAS": TypeClass,
	"INTF": TypeInterface,
	"PROG": TypeProgram,
	"INCL": TypeInclude,
	"FUGR": TypeFunctionGroup,
	"FUNC": TypeFunctionModule,
	"TABL": TypeTable,
	"STRU": TypeStructure,
	"VIEW": TypeView,
	"DDLS": TypeCDSView,
	"DTEL": TypeDataElement,
	"DOMA": TypeDomain,
	"DEVC": TypePackage,
	"TRAN": TypeTransaction,
	"MSAG": TypeMessageClass,
}

// ParseADTType converts an ADT repository type string (e.g. "CLAS/OC",
// "PROG/P", "DEVC/K") to an ObjectType. Unknown groups map to TypeUnknown.
func ParseADTType(adtType string) ObjectType {
	group := strings.ToUpper(strings.TrimSpace(adtType))
	if i := strings.IndexByte(group, '/'); i >= 0 {
		group = group[:i]
	}
	if t, ok := adtTypeCodes[group]; ok {
		return t
	}
	return TypeUnknown
}

// Object identifies one repository object by canonical name and category.
type Object struct {
	Name string     // canonical (uppercase) object name
	Type ObjectType // object category
}

// String returns "NAME (type)" for logs and error messages.
func (o Object) String() string {
	return fmt.Sprintf("%s (%s)", o.Name, o.Type)
}

// NormalizeName returns the canonical form of an object name. Repository
// object names are case-insensitive; every map and set in abapdoc is
// keyed by the uppercase form.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// ComponentSeparator marks a reference to a component of an already
// modeled type (e.g. "ZIF_FOO~GET"). Such names never become objects.
const ComponentSeparator = "~"

// IsComponentRef reports whether name refers to a sub-member of another
// object rather than a repository object of its own.
func IsComponentRef(name string) bool {
	return strings.Contains(name, ComponentSeparator)
}

// IsCustom reports whether name lies in the customer namespace.
// Customer objects start with Z or Y, or carry a registered namespace
// prefix such as "/ACME/". Everything else is SAP-delivered.
func IsCustom(name string) bool {
	n := NormalizeName(name)
	if n == "" {
		return false
	}
	if n[0] == 'Z' || n[0] == 'Y' {
		return true
	}
	// Registered namespaces: /NS/OBJECT_NAME.
	if n[0] == '/' {
		return strings.Count(n, "/") >= 2
	}
	return false
}

// LooksLikeInterface reports whether name follows the interface naming
// convention (IF_, ZIF_, YIF_, or a namespaced /NS/IF_ prefix). Used as
// the fallback when the type resolver fails or reports not-found.
func LooksLikeInterface(name string) bool {
	n := NormalizeName(name)
	if i := strings.LastIndexByte(n, '/'); i >= 0 {
		n = n[i+1:]
	}
	return strings.HasPrefix(n, "IF_") ||
		strings.HasPrefix(n, "ZIF_") ||
		strings.HasPrefix(n, "YIF_")
}

// GuessType applies the naming-convention heuristic for a dependency
// whose concrete type could not be resolved: interface-style names
// resolve to TypeInterface, everything else defaults to TypeClass.
func GuessType(name string) ObjectType {
	if LooksLikeInterface(name) {
		return TypeInterface
	}
	return TypeClass
}
