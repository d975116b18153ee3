// Package biz implements the document intelligence business logic: ingest
// (extract, recognize, chunk, embed, index), hybrid retrieval and grounded
// chat over the indexed corpus.
package biz
