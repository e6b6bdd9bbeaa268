// Package prediction owns the trained ETA model for the life of the process
// and exposes a single read-only predict operation over a feature vector.
// The model is loaded exactly once; a failed load is fatal to startup.
package prediction
