// Package lookups serves searchable lookup collections (providers,
// departments, employees, quotations) as JSON options for form inputs.
//
// The handler responds to GET and HEAD requests on one route per collection
// and supports query and limit parameters. Matching ignores case and accents,
// so "societe" finds "Société Générale".
package lookups
