package adt

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

const searchPath = "/sap/bc/adt/repository/informationsystem/search"

// searchMaxResults bounds quick-search responses. The search is only
// used for exact-name lookups, so a handful of hits is plenty.
const searchMaxResults = 5

// packageSearchMax bounds package pattern searches. These feed the
// interactive picker, which paginates anyway.
const packageSearchMax = 50

// ObjectInfo describes a repository object found by the quick search.
type ObjectInfo struct {
	Name        string          `json:"name"`
	Type        abap.ObjectType `json:"type"`
	RawType     string          `json:"raw_type"` // ADT wire type, e.g. "CLAS/OC"
	URI         string          `json:"uri"`
	Package     string          `json:"package,omitempty"`
	Description string          `json:"description,omitempty"`
}

// objectReferences mirrors the quick-search response:
//
//	<adtcore:objectReferences xmlns:adtcore="http://www.sap.com/adt/core">
//	  <adtcore:objectReference adtcore:uri="..." adtcore:type="CLAS/OC"
//	    adtcore:name="ZCL_X" adtcore:packageName="ZPKG" .../>
//	</adtcore:objectReferences>
type objectReferences struct {
	XMLName xml.Name          `xml:"objectReferences"`
	Refs    []objectReference `xml:"objectReference"`
}

type objectReference struct {
	URI         string `xml:"uri,attr"`
	Type        string `xml:"type,attr"`
	Name        string `xml:"name,attr"`
	Package     string `xml:"packageName,attr"`
	Description string `xml:"description,attr"`
}

// ResolveObject looks up a repository object by exact name via the
// ADT quick search. Returns [ErrNotFound] when no object of that name
// exists. If refresh is true the cache is bypassed.
func (c *Client) ResolveObject(ctx context.Context, name string, refresh bool) (*ObjectInfo, error) {
	name = abap.NormalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("adt: empty object name")
	}

	var info ObjectInfo
	err := c.cached(ctx, "search:", name, refresh, &info, func() error {
		found, err := c.resolve(ctx, name)
		if err != nil {
			return err
		}
		info = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ResolveType resolves just the object category of a named object.
func (c *Client) ResolveType(ctx context.Context, name string, refresh bool) (abap.ObjectType, error) {
	info, err := c.ResolveObject(ctx, name, refresh)
	if err != nil {
		return abap.TypeUnknown, err
	}
	return info.Type, nil
}

// resolve performs the uncached search round trip. Only an exact
// (case-insensitive) name match counts; the quick search matches by
// prefix, so ZCL_ORDER would otherwise resolve to ZCL_ORDER_UTIL when
// only the latter exists.
func (c *Client) resolve(ctx context.Context, name string) (*ObjectInfo, error) {
	query := url.Values{
		"operation":  {"quickSearch"},
		"query":      {name},
		"maxResults": {strconv.Itoa(searchMaxResults)},
	}

	var refs objectReferences
	if err := c.getXML(ctx, http.MethodGet, searchPath, query, &refs); err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}

	for _, ref := range refs.Refs {
		if abap.NormalizeName(ref.Name) != name {
			continue
		}
		return &ObjectInfo{
			Name:        abap.NormalizeName(ref.Name),
			Type:        abap.ParseADTType(ref.Type),
			RawType:     ref.Type,
			URI:         ref.URI,
			Package:     ref.Package,
			Description: ref.Description,
		}, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// SearchPackages finds development packages whose names match pattern
// in quick-search syntax, so "Z*" lists the customer namespace. Hits
// keep the system's ranking. Non-package hits are dropped here rather
// than filtered server-side; the objectType facet is not available on
// all releases. If refresh is true the cache is bypassed.
func (c *Client) SearchPackages(ctx context.Context, pattern string, refresh bool) ([]ObjectInfo, error) {
	pattern = abap.NormalizeName(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("adt: empty search pattern")
	}

	var packages []ObjectInfo
	err := c.cached(ctx, "pkgsearch:", pattern, refresh, &packages, func() error {
		query := url.Values{
			"operation":  {"quickSearch"},
			"query":      {pattern},
			"maxResults": {strconv.Itoa(packageSearchMax)},
		}

		var refs objectReferences
		if err := c.getXML(ctx, http.MethodGet, searchPath, query, &refs); err != nil {
			return fmt.Errorf("search packages %s: %w", pattern, err)
		}

		packages = packages[:0]
		for _, ref := range refs.Refs {
			if ref.Type != packageTypeCode {
				continue
			}
			packages = append(packages, ObjectInfo{
				Name:        abap.NormalizeName(ref.Name),
				Type:        abap.ParseADTType(ref.Type),
				RawType:     ref.Type,
				URI:         ref.URI,
				Package:     ref.Package,
				Description: ref.Description,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return packages, nil
}
