package collector

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"f0oster/adwarden/activedirectory"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeTree serves groups and members from in-memory maps and counts fetches
// so tests can assert each group is expanded exactly once.
type fakeTree struct {
	groups  map[string]*activedirectory.GroupEntry
	members map[string]*activedirectory.MemberEntry
	fetches map[string]int
}

func newFakeTree() *fakeTree {
	return &fakeTree{
		groups:  make(map[string]*activedirectory.GroupEntry),
		members: make(map[string]*activedirectory.MemberEntry),
		fetches: make(map[string]int),
	}
}

func (f *fakeTree) addGroup(name string, memberDNs ...string) string {
	dn := fmt.Sprintf("CN=%s,OU=Groups,DC=corp,DC=test", name)
	ref := activedirectory.ObjectRef{ObjectGUID: uuid.New(), LastKnownDN: dn}
	f.groups[name] = &activedirectory.GroupEntry{Ref: ref, Name: name, Members: memberDNs}
	f.members[dn] = &activedirectory.MemberEntry{
		Ref: ref, Name: name, IsGroup: true, Members: memberDNs,
	}
	return dn
}

func (f *fakeTree) addUser(account string) string {
	dn := fmt.Sprintf("CN=%s,OU=Staff,DC=corp,DC=test", account)
	f.members[dn] = &activedirectory.MemberEntry{
		Ref:         activedirectory.ObjectRef{ObjectGUID: uuid.New(), LastKnownDN: dn},
		AccountName: account,
		Name:        account,
		IsPerson:    true,
	}
	return dn
}

func (f *fakeTree) FindGroup(name string) (*activedirectory.GroupEntry, error) {
	group, found := f.groups[name]
	if !found {
		return nil, &activedirectory.NotFoundError{Target: name}
	}
	return group, nil
}

func (f *fakeTree) FetchMember(dn string) (*activedirectory.MemberEntry, error) {
	f.fetches[dn]++
	member, found := f.members[dn]
	if !found {
		return nil, &activedirectory.NotFoundError{Target: dn}
	}
	return member, nil
}

func newTestCrawler(tree *fakeTree) *Crawler {
	return NewCrawler(tree, 10000, zap.NewNop())
}

func TestCrawlIndexesNestedMembers(t *testing.T) {
	tree := newFakeTree()
	alice := tree.addUser("alice")
	bob := tree.addUser("bob")
	childDN := tree.addGroup("Financeiro", bob)
	tree.addGroup("Empresa", alice, childDN)

	index, err := newTestCrawler(tree).Crawl(context.Background(), "Empresa")
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if got := index["alice"]; !reflect.DeepEqual(got, []string{"Empresa"}) {
		t.Errorf("alice paths = %v, want [Empresa]", got)
	}
	if got := index["bob"]; !reflect.DeepEqual(got, []string{"Financeiro"}) {
		t.Errorf("bob paths = %v, want [Financeiro]", got)
	}
}

func TestCrawlCycleTerminates(t *testing.T) {
	tree := newFakeTree()
	alice := tree.addUser("alice")

	// A and B contain each other. Register both, then rewrite the member
	// lists so each points at the other.
	dnA := tree.addGroup("GroupA", alice)
	dnB := tree.addGroup("GroupB")
	tree.groups["GroupA"].Members = []string{alice, dnB}
	tree.members[dnA].Members = []string{alice, dnB}
	tree.groups["GroupB"].Members = []string{dnA}
	tree.members[dnB].Members = []string{dnA}

	index, err := newTestCrawler(tree).Crawl(context.Background(), "GroupA")
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if got := index["alice"]; !reflect.DeepEqual(got, []string{"GroupA"}) {
		t.Errorf("alice paths = %v, want [GroupA]", got)
	}
	// GroupA is expanded once from the root; its DN is fetched at most once
	// when GroupB links back, and the visited set stops the second expansion.
	if tree.fetches[dnB] != 1 {
		t.Errorf("GroupB fetched %d times, want 1", tree.fetches[dnB])
	}
}

func TestCrawlMissingRootDegradesToEmptyIndex(t *testing.T) {
	tree := newFakeTree()

	index, err := newTestCrawler(tree).Crawl(context.Background(), "Missing")
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(index) != 0 {
		t.Errorf("index = %v, want empty", index)
	}
}

func TestCrawlSkipsBuiltinGroups(t *testing.T) {
	tree := newFakeTree()
	ghost := tree.addUser("ghost")
	builtinDN := tree.addGroup("Domain Users", ghost)
	tree.addGroup("Empresa", builtinDN)

	index, err := newTestCrawler(tree).Crawl(context.Background(), "Empresa")
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if _, indexed := index["ghost"]; indexed {
		t.Error("members reached only through a builtin group must not be indexed")
	}
}

func TestCrawlDanglingMemberIsSkipped(t *testing.T) {
	tree := newFakeTree()
	alice := tree.addUser("alice")
	tree.addGroup("Empresa", "CN=gone,OU=Staff,DC=corp,DC=test", alice)

	index, err := newTestCrawler(tree).Crawl(context.Background(), "Empresa")
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if got := index["alice"]; !reflect.DeepEqual(got, []string{"Empresa"}) {
		t.Errorf("alice paths = %v, want [Empresa]", got)
	}
}
