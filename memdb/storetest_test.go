package memdb

import (
	"testing"

	"github.com/zirius/shors/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, New())
}

func TestCounterInitRace(t *testing.T) {
	storetest.RunInit(t, New())
}
