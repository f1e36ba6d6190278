// Package models defines the core domain models for splitactivity.
//
// # Models
//
//   - User: a registered account; displayed by name, falling back to email
//   - Expense: money fronted by one user, split by a SplitType
//   - ExpenseParticipation: one participant's allocation of one expense
//
// # Design Principles
//
//  1. **Decimal money**: amounts are shopspring decimals, never float64
//  2. **Derived direction**: monetary values are stored unsigned; who owes
//     whom is derived from identity, not from a stored sign
//  3. **Avoid circular references**: relationships use ID strings; the
//     denormalized PaidByUser and Expense pointers are read-only joins
//  4. **Write once**: expenses and participations are never mutated after
//     they are recorded
package models
