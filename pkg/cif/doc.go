// Package cif provides a streaming reader for the mmCIF text grammar and
// its packed BinaryCIF counterpart, two serializations of the same
// category/keyword tabular data model used in structural biology.
//
// A caller registers the categories and keywords it cares about, then
// drives the reader one data block at a time with ReadBlock. Everything
// not registered is skipped without being materialized.
//
// The two wire formats funnel through the same callback contract: a row
// callback sees an ordered RowView of keyword slots, each either present
// (with a typed value), omitted (the literal '.'), or unknown (the literal
// '?'). See ReaderOptions for the buffer sizing and payload sanity
// bounds.
package cif
