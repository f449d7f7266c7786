// Package appcanvas is the HTTP service of the appcanvas application builder.
//
// [App] ties the store, the token issuer and the realtime hub together and
// serves the REST API returned by [App.Handler]. Every handler follows the
// same steps:
//
//  1. authenticate the request (preview reads of a canvas may skip this),
//  2. load the app and check that the caller owns it,
//  3. read or write the store, tolerating per-item failures in bulk requests,
//  4. append the history rows of the change,
//  5. broadcast an event to the app's room,
//  6. answer with an [Envelope].
//
// A caller that does not own an app gets the same 404 as for a missing app.
// Bulk responses only carry counts; the ids of failed items are logged.
//
// The command tree built by [NewRootCommand] runs the server, migrations,
// history pruning and token issuing. [Main] runs it from tests.
package appcanvas
