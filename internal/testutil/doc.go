// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing participants, exchange records and
// scripted language-model capabilities. They are not intended for production
// usage.
package testutil
