// Package delivery composes search, fetch and transport handoff.
//
// PresentCandidates turns a query into selectable options. ResolveSelection
// decodes a selection token and fetches the item. Finalize hands a Ready
// artifact to the transport and removes it on every exit path, including a
// panicking handoff. Users only ever see the coarse messages defined here;
// detail goes to the log and the operator notifier.
package delivery
