// Package permission decides whether a resolved user may act on a project
// or on a task inside a project.
//
// The evaluator is a pure function of the subject, the route's declared
// role set, the requested operation and whatever the Lookup returns. It
// holds no state of its own, so the whole role/operation matrix can be
// exercised against an in-memory Lookup.
//
// Evaluation order:
//
//  1. A subject whose global role is admin is allowed with no lookups.
//  2. The project ID must be well formed. Task-only targets resolve their
//     project through the task.
//  3. The subject's global role must be one of the allowed roles.
//  4. A membership row for (project, subject) with an allowed role must
//     exist.
//  5. For task targets, a project-admin-level membership is enough.
//     Otherwise writes require the subject to be the task's assigner and
//     reads require assigner or assignee.
package permission
