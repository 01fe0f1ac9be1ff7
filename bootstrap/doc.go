// Package bootstrap runs a bulkflow command as a finite task.
//
// An App owns the command's typed config, its logger and a registry of
// components. RunTask starts the components, runs the task under a context
// that an interrupt cancels, and then stops the components in reverse
// order, also when startup or the task failed.
package bootstrap
