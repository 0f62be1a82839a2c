/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// catalogSchema constrains the shape of a catalog document. Cross references
// (blockers, factions, effects) are checked afterwards in Go.
const catalogSchema = `
#ID: string & =~"^[a-z][a-z0-9_]*$"

#Role: {
	id:                  #ID
	name:                string & !=""
	faction:             #ID
	actionType?:         #ID
	cost?:               int & >=0
	targeted?:           bool
	blockType?: [...#ID]
	counteredByFaction?: [...#ID]
	countInDeck:         int & >=0
	description?:        string
	script?:             string
}

#Action: {
	id:           #ID
	cost?:        int & >=0
	description?: string
	targeted?:    bool
	blockedByFaction?: [...#ID]
	mustActionCoinThreshold?: int & >=0
	script?: string
}

startingCoins?:      int & >=0
influencePerPlayer?: int & >=1
minPlayers?:         int & >=2
maxPlayers?:         int & >=2
roles: [#Role, ...#Role]
actions?: [...#Action]
`

// ValidateSchema checks doc against the catalog schema.
func ValidateSchema(doc *Document) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(catalogSchema)
	if err := schema.Err(); err != nil {
		return configErrorf("catalog schema: %v", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return configErrorf("encode catalog: %v", err)
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return configErrorf("catalog does not match schema: %s", errors.Details(err, nil))
	}

	return nil
}
