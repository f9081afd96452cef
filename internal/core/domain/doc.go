// Package domain contains the core business entities for document
// ingestion and retrieval-augmented question answering.
package domain
