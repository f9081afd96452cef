// Package services implements the core pipeline behind the driving
// ports: ingestion, question answering and collection administration.
package services
