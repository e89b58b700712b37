package models

type OwnerKind string

const (
	OwnerParent OwnerKind = "parent"
	OwnerBranch OwnerKind = "branch"
)

// Owner is an entity holding back-references to its users and products.
// Implemented by *Parent and *Branch.
type Owner interface {
	OwnerKind() OwnerKind
	OwnerID() uint64
	Members() *IDList
	ProductMembers() *IDList
	// TenantID is the parent at the top of the owner's hierarchy.
	TenantID() uint64
}
