package vault

import (
	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
)

const (
	CONTRACT   = "vault.contract"
	PROVIDER   = "alice.provider"
	RESEARCHER = "bob.lab"
	STRANGER   = "mallory.eve"
)

func newTestVault() (*stacks.Sim, *Vault) {
	chain := stacks.NewSim()
	chain.Advance(10)
	v := New(chain, Config{ContractAccount: CONTRACT})
	return chain, v
}

func as(p stacks.Principal) stacks.CallContext {
	return stacks.CallContext{Sender: p}
}

func testHash(b byte) DataHash {
	var h DataHash
	for i := range h {
		h[i] = b
	}
	return h
}
