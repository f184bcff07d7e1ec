// Package ir provides the program model and output record types for pathminer.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the program model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Statement identity is the index of the statement in its body
//   - Object identity is (representation, type), never a pointer
//   - All JSON tags use snake_case
//   - Signatures use the quoted "<class>: <ret> <name>(<params>)" form
package ir
