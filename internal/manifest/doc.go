// Package manifest loads and saves the .cloak manifest: the versioned,
// source-controlled record of which secret files a project tracks, where
// their encrypted blobs live, and which secrets-repository revision they
// were last synced from.
package manifest
