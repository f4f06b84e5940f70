package adt

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

// sourcePaths maps directly addressable object types to their ADT
// source URL patterns. Function modules are addressed through their
// function group and resolved via the repository search instead.
var sourcePaths = map[abap.ObjectType]string{
	abap.TypeClass:         "/sap/bc/adt/oo/classes/%s/source/main",
	abap.TypeInterface:     "/sap/bc/adt/oo/interfaces/%s/source/main",
	abap.TypeProgram:       "/sap/bc/adt/programs/programs/%s/source/main",
	abap.TypeInclude:       "/sap/bc/adt/programs/includes/%s/source/main",
	abap.TypeFunctionGroup: "/sap/bc/adt/functions/groups/%s/source/main",
	abap.TypeTable:         "/sap/bc/adt/ddic/tables/%s/source/main",
	abap.TypeStructure:     "/sap/bc/adt/ddic/structures/%s/source/main",
	abap.TypeView:          "/sap/bc/adt/ddic/views/%s/source/main",
	abap.TypeCDSView:       "/sap/bc/adt/ddic/ddl/sources/%s/source/main",
}

// FetchSource retrieves the source text of a repository object.
//
// Data elements and domains have no source representation in ADT and
// return [ErrNoSource]. Missing objects return [ErrNotFound]. If
// refresh is true the cache is bypassed.
func (c *Client) FetchSource(ctx context.Context, name string, objType abap.ObjectType, refresh bool) (string, error) {
	name = abap.NormalizeName(name)
	if name == "" {
		return "", fmt.Errorf("adt: empty object name")
	}

	if objType == abap.TypeFunctionModule {
		return c.fetchFunctionModuleSource(ctx, name, refresh)
	}

	pattern, ok := sourcePaths[objType]
	if !ok {
		return "", fmt.Errorf("%s (%s): %w", name, objType, ErrNoSource)
	}
	path := fmt.Sprintf(pattern, escapeName(name))

	var src string
	key := objType.String() + ":" + name
	err := c.cached(ctx, "source:", key, refresh, &src, func() error {
		text, err := c.getText(ctx, path, nil)
		if err != nil {
			return fmt.Errorf("fetch source of %s: %w", name, err)
		}
		src = text
		return nil
	})
	return src, err
}

// fetchFunctionModuleSource locates the module's URI through the quick
// search (the URI embeds the owning function group) and fetches from
// there.
func (c *Client) fetchFunctionModuleSource(ctx context.Context, name string, refresh bool) (string, error) {
	var src string
	err := c.cached(ctx, "source:", "function_module:"+name, refresh, &src, func() error {
		info, err := c.resolve(ctx, name)
		if err != nil {
			return fmt.Errorf("locate function module %s: %w", name, err)
		}
		text, err := c.getText(ctx, info.URI+"/source/main", nil)
		if err != nil {
			return fmt.Errorf("fetch source of %s: %w", name, err)
		}
		src = text
		return nil
	})
	return src, err
}

// escapeName lowercases a name and percent-encodes it for use as a URL
// path segment. ADT addresses objects in lowercase, and namespace
// slashes (/ACME/CL_X) must be encoded.
func escapeName(name string) string {
	return url.PathEscape(strings.ToLower(name))
}
