// Package directory provides the read-mostly collaborator data the
// ingestion pipeline needs: locations, guests and crew members.
//
// The administrative CRUD surface for these entities lives in the
// console service; this package exposes only the lookups the core
// depends on ("guest at location", "on-duty crew") plus the one write
// path the core owns, the do-not-disturb toggle triggered from cabin
// buttons.
package directory
