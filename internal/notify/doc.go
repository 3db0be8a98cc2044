// Package notify carries transient, user-facing notices (load failures,
// rolled-back changes) from components to whatever UI hosts them.
package notify
