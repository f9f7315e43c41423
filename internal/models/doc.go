// Package models defines the core domain models for Roomledger.
//
// # Models
//
//   - Room: a dormitory room whose members share expenses
//   - User: a registered member account
//   - Bill: a shared charge within a room, with a fixed total to cover
//   - PaymentTransfer: a claimed money movement between members against a bill
//   - OfflinePayment: a payment fact captured without connectivity, pending sync
//   - Payment: the authoritative ledger entry for money received against a bill
//
// # Design Principles
//
//  1. **Money is integer cents**: amounts are int64 minor units; float money
//     is never stored or computed with.
//  2. **Closed status sets**: transfer types and statuses are typed string
//     constants, not bare strings, so invalid states don't compile. The
//     on-the-wire JSON strings are unchanged.
//  3. **Avoid circular references**: relationships use ID strings, not pointers.
//  4. **Audit retention**: transfers and offline payments are never deleted;
//     lifecycle transitions are the only mutations.
package models
