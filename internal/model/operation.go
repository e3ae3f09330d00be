package model

import "strings"

type OpKind string

const (
	OpExpand OpKind = "expand"
	OpFetch  OpKind = "fetch"
)

// Identity is the (owner login, name) key of a repository.
type Identity struct {
	Owner string
	Name  string
}

func (i Identity) String() string {
	return i.Owner + "/" + i.Name
}

// Key is the case-insensitive form used to match provider answers to requests.
func (i Identity) Key() string {
	return strings.ToLower(i.Owner) + "/" + strings.ToLower(i.Name)
}

// Operation describes one request to the provider. Expand carries exactly one
// target and optional per neighbor set resume cursors; Fetch carries the batch.
type Operation struct {
	Kind    OpKind
	Targets []Identity
	Cursors map[string]string
}
