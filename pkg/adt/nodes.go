package adt

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

const nodestructurePath = "/sap/bc/adt/repository/nodestructure"

// packageTypeCode is the ADT wire type of a development package.
const packageTypeCode = "DEVC/K"

// PackageNode is one entry of a package's node structure: either a
// sub-package or a repository object.
type PackageNode struct {
	Name        string          `json:"name"`
	Type        abap.ObjectType `json:"type"`
	RawType     string          `json:"raw_type"`
	URI         string          `json:"uri,omitempty"`
	Description string          `json:"description,omitempty"`
	Expandable  bool            `json:"expandable,omitempty"`
}

// IsPackage reports whether the entry is a sub-package.
func (n PackageNode) IsPackage() bool { return n.RawType == packageTypeCode }

// nodestructureResponse mirrors the asx:abap envelope the node
// structure service answers with. Only TREE_CONTENT is of interest;
// the CATEGORIES and OBJECT_TYPES tables are facet metadata for the
// ADT UI.
type nodestructureResponse struct {
	XMLName xml.Name         `xml:"abap"`
	Nodes   []repositoryNode `xml:"values>DATA>TREE_CONTENT>SEU_ADT_REPOSITORY_OBJ_NODE"`
}

type repositoryNode struct {
	ObjectType  string `xml:"OBJECT_TYPE"`
	ObjectName  string `xml:"OBJECT_NAME"`
	TechName    string `xml:"TECH_NAME"`
	ObjectURI   string `xml:"OBJECT_URI"`
	Description string `xml:"DESCRIPTION"`
	Expandable  string `xml:"EXPANDABLE"` // ABAP boolean: "X" or empty
}

// ListPackage retrieves the direct contents of a development package:
// its sub-packages and repository objects, in the order the system
// reports them. Returns [ErrNotFound] for unknown packages. If refresh
// is true the cache is bypassed.
func (c *Client) ListPackage(ctx context.Context, pkg string, refresh bool) ([]PackageNode, error) {
	pkg = abap.NormalizeName(pkg)
	if pkg == "" {
		return nil, fmt.Errorf("adt: empty package name")
	}

	var nodes []PackageNode
	err := c.cached(ctx, "nodes:", pkg, refresh, &nodes, func() error {
		query := url.Values{
			"parent_type":           {packageTypeCode},
			"parent_name":           {pkg},
			"withShortDescriptions": {"true"},
		}

		var resp nodestructureResponse
		if err := c.getXML(ctx, http.MethodPost, nodestructurePath, query, &resp); err != nil {
			return fmt.Errorf("list package %s: %w", pkg, err)
		}

		nodes = nodes[:0]
		for _, n := range resp.Nodes {
			if n.ObjectName == "" {
				continue
			}
			nodes = append(nodes, PackageNode{
				Name:        abap.NormalizeName(n.ObjectName),
				Type:        abap.ParseADTType(n.ObjectType),
				RawType:     n.ObjectType,
				URI:         n.ObjectURI,
				Description: n.Description,
				Expandable:  n.Expandable == "X",
			})
		}
		return nil
	})
	return nodes, err
}
