package adt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/abapdoc/abapdoc/pkg/abap"
)

// The quick search matches by prefix; the fixture lists a longer
// prefix match first to prove exact-name selection.
const orderSearchResponse = `<?xml version="1.0" encoding="UTF-8"?>
<adtcore:objectReferences xmlns:adtcore="http://www.sap.com/adt/core">
  <adtcore:objectReference adtcore:uri="/sap/bc/adt/oo/classes/zcl_order_util" adtcore:type="CLAS/OC" adtcore:name="ZCL_ORDER_UTIL" adtcore:packageName="ZORDERS" adtcore:description="Order utilities"/>
  <adtcore:objectReference adtcore:uri="/sap/bc/adt/oo/classes/zcl_order" adtcore:type="CLAS/OC" adtcore:name="ZCL_ORDER" adtcore:packageName="ZORDERS" adtcore:description="Order entity"/>
</adtcore:objectReferences>`

func TestResolveObject(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(orderSearchResponse))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	info, err := c.ResolveObject(context.Background(), "zcl_order", false)
	if err != nil {
		t.Fatalf("ResolveObject failed: %v", err)
	}

	if info.Name != "ZCL_ORDER" {
		t.Errorf("Name = %q, want ZCL_ORDER", info.Name)
	}
	if info.Type != abap.TypeClass {
		t.Errorf("Type = %v, want class", info.Type)
	}
	if info.RawType != "CLAS/OC" {
		t.Errorf("RawType = %q, want CLAS/OC", info.RawType)
	}
	if info.URI != "/sap/bc/adt/oo/classes/zcl_order" {
		t.Errorf("URI = %q", info.URI)
	}
	if info.Package != "ZORDERS" {
		t.Errorf("Package = %q, want ZORDERS", info.Package)
	}

	if gotQuery.Get("operation") != "quickSearch" {
		t.Errorf("operation = %q, want quickSearch", gotQuery.Get("operation"))
	}
	if gotQuery.Get("query") != "ZCL_ORDER" {
		t.Errorf("query = %q, want ZCL_ORDER", gotQuery.Get("query"))
	}
	if gotQuery.Get("maxResults") != "5" {
		t.Errorf("maxResults = %q, want 5", gotQuery.Get("maxResults"))
	}
}

func TestResolveObject_NoExactMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(orderSearchResponse))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	// Prefix of both fixture entries, exact match of neither.
	_, err := c.ResolveObject(context.Background(), "ZCL_ORD", false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveObject error = %v, want ErrNotFound", err)
	}
}

func TestResolveObject_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<adtcore:objectReferences xmlns:adtcore="http://www.sap.com/adt/core"/>`))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.ResolveObject(context.Background(), "ZCL_MISSING", false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveObject error = %v, want ErrNotFound", err)
	}
}

func TestResolveType(t *testing.T) {
	const tableResponse = `<?xml version="1.0" encoding="UTF-8"?>
<adtcore:objectReferences xmlns:adtcore="http://www.sap.com/adt/core">
  <adtcore:objectReference adtcore:uri="/sap/bc/adt/ddic/tables/ztorders" adtcore:type="TABL/DT" adtcore:name="ZTORDERS" adtcore:packageName="ZORDERS"/>
</adtcore:objectReferences>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(tableResponse))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	objType, err := c.ResolveType(context.Background(), "ztorders", false)
	if err != nil {
		t.Fatalf("ResolveType failed: %v", err)
	}
	if objType != abap.TypeTable {
		t.Errorf("ResolveType = %v, want table", objType)
	}
}

func TestSearchPackages(t *testing.T) {
	const mixedResponse = `<?xml version="1.0" encoding="UTF-8"?>
<adtcore:objectReferences xmlns:adtcore="http://www.sap.com/adt/core">
  <adtcore:objectReference adtcore:uri="/sap/bc/adt/packages/zorders" adtcore:type="DEVC/K" adtcore:name="ZORDERS" adtcore:description="Order processing"/>
  <adtcore:objectReference adtcore:uri="/sap/bc/adt/oo/classes/zcl_order" adtcore:type="CLAS/OC" adtcore:name="ZCL_ORDER" adtcore:packageName="ZORDERS"/>
  <adtcore:objectReference adtcore:uri="/sap/bc/adt/packages/zbasis" adtcore:type="DEVC/K" adtcore:name="ZBASIS" adtcore:description="Shared utilities"/>
</adtcore:objectReferences>`

	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(mixedResponse))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	packages, err := c.SearchPackages(context.Background(), "z*", false)
	if err != nil {
		t.Fatalf("SearchPackages failed: %v", err)
	}

	if len(packages) != 2 {
		t.Fatalf("len(packages) = %d, want 2 (non-package hits dropped)", len(packages))
	}
	if packages[0].Name != "ZORDERS" || packages[1].Name != "ZBASIS" {
		t.Errorf("packages = %q, %q; want ZORDERS, ZBASIS", packages[0].Name, packages[1].Name)
	}
	if packages[0].Type != abap.TypePackage {
		t.Errorf("Type = %v, want package", packages[0].Type)
	}
	if packages[0].Description != "Order processing" {
		t.Errorf("Description = %q", packages[0].Description)
	}

	if gotQuery.Get("query") != "Z*" {
		t.Errorf("query = %q, want Z*", gotQuery.Get("query"))
	}
	if gotQuery.Get("maxResults") != "50" {
		t.Errorf("maxResults = %q, want 50", gotQuery.Get("maxResults"))
	}
}

func TestSearchPackages_EmptyPattern(t *testing.T) {
	c := testClient(t, "https://example.invalid")
	if _, err := c.SearchPackages(context.Background(), "  ", false); err == nil {
		t.Error("SearchPackages accepted an empty pattern")
	}
}

func TestResolveObject_UnknownTypeCode(t *testing.T) {
	const response = `<?xml version="1.0" encoding="UTF-8"?>
<adtcore:objectReferences xmlns:adtcore="http://www.sap.com/adt/core">
  <adtcore:objectReference adtcore:uri="/sap/bc/adt/enhancements/zenh" adtcore:type="ENHO/XHB" adtcore:name="ZENH"/>
</adtcore:objectReferences>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(response))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	info, err := c.ResolveObject(context.Background(), "ZENH", false)
	if err != nil {
		t.Fatalf("ResolveObject failed: %v", err)
	}
	if info.Type != abap.TypeUnknown {
		t.Errorf("Type = %v, want unknown", info.Type)
	}
}
