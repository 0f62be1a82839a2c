/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestPublicStateGolden(t *testing.T) {
	r := started(t, 3, "a")
	r.deal(hands{"a": {"captain", "duke"}, "b": {"contessa", "assassin"}, "c": {"ambassador", "inquisitor"}})

	require.NoError(t, r.m.Declare("a", "steal", "b"))

	goldie.New(t).AssertJson(t, "public_state", r.m.Snapshot())
}
