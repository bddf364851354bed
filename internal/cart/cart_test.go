package cart

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name, price string) Item {
	return Item{ID: uuid.New(), VendorID: uuid.Nil, Name: name, UnitPrice: decimal.RequireFromString(price)}
}

func TestAddMergesSameItem(t *testing.T) {
	c := &Cart{}
	dosa := item("Masala Dosa", "45")
	c.Add(dosa)
	c.Add(dosa)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(90)))
}

func TestTotalMatchesScenario(t *testing.T) {
	c := &Cart{}
	c.Add(item("Masala Dosa", "45"))
	idli := item("Idli", "50")
	c.Add(idli)
	c.Add(idli)

	assert.True(t, c.Total().Equal(decimal.NewFromInt(145)))
	assert.Len(t, c.Lines(), 2)
}

func TestSetQuantity(t *testing.T) {
	c := &Cart{}
	tea := item("Tea", "10")
	coffee := item("Coffee", "20")
	c.Add(tea)
	c.Add(coffee)

	c.SetQuantity(tea.ID, 3)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(50)))

	c.SetQuantity(tea.ID, 0)
	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, coffee.ID, lines[0].ItemID)

	c.SetQuantity(uuid.New(), 5)
	assert.Len(t, c.Lines(), 1)

	c.SetQuantity(coffee.ID, -2)
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}

func TestRemoveAndClear(t *testing.T) {
	c := &Cart{}
	a, b := item("A", "1.50"), item("B", "2.25")
	c.Add(a)
	c.Add(b)

	c.Remove(a.ID)
	c.Remove(uuid.New())
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, "2.25", c.Total().StringFixed(2))

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, uuid.Nil, c.VendorID())
}

func TestLinesIsACopy(t *testing.T) {
	c := &Cart{}
	c.Add(item("A", "5"))

	lines := c.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestJSONRoundTripKeepsInvariants(t *testing.T) {
	id := uuid.New()
	raw := []byte(`{"lines":[` +
		`{"item_id":"` + id.String() + `","name":"A","unit_price":"5","quantity":1},` +
		`{"item_id":"` + id.String() + `","name":"A","unit_price":"5","quantity":2},` +
		`{"item_id":"` + uuid.NewString() + `","name":"B","unit_price":"3","quantity":0}]}`)

	c := &Cart{}
	require.NoError(t, json.Unmarshal(raw, c))
	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)

	encoded, err := json.Marshal(c)
	require.NoError(t, err)
	decoded := &Cart{}
	require.NoError(t, json.Unmarshal(encoded, decoded))
	assert.True(t, decoded.Total().Equal(decimal.NewFromInt(15)))
}

// TestRandomOperationSequencesKeepInvariants drives the cart with seeded random operations and
// checks it against a plain map model after every step. Totals are recomputed in integer paise.
func TestRandomOperationSequencesKeepInvariants(t *testing.T) {
	prices := []string{"0.01", "9.99", "12.50", "45", "50", "99.95", "120.75", "1000"}

	for seed := uint64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7919))
		menu := make([]Item, 6)
		paise := make(map[uuid.UUID]int64, len(menu))
		for i := range menu {
			menu[i] = item(fmt.Sprintf("item-%d", i), prices[rng.IntN(len(prices))])
			paise[menu[i].ID] = menu[i].UnitPrice.Shift(2).IntPart()
		}

		c := &Cart{}
		model := map[uuid.UUID]int{}
		for step := 0; step < 200; step++ {
			it := menu[rng.IntN(len(menu))]
			switch rng.IntN(4) {
			case 0, 1:
				c.Add(it)
				model[it.ID]++
			case 2:
				qty := rng.IntN(6) - 2
				c.SetQuantity(it.ID, qty)
				if _, ok := model[it.ID]; ok {
					if qty <= 0 {
						delete(model, it.ID)
					} else {
						model[it.ID] = qty
					}
				}
			case 3:
				c.Remove(it.ID)
				delete(model, it.ID)
			}

			lines := c.Lines()
			seen := make(map[uuid.UUID]bool, len(lines))
			var wantPaise int64
			for _, l := range lines {
				require.False(t, seen[l.ItemID], "seed %d step %d: duplicate item id", seed, step)
				seen[l.ItemID] = true
				require.GreaterOrEqual(t, l.Quantity, 1, "seed %d step %d", seed, step)
				require.Equal(t, model[l.ItemID], l.Quantity, "seed %d step %d", seed, step)
				wantPaise += paise[l.ItemID] * int64(l.Quantity)
			}
			require.Len(t, lines, len(model), "seed %d step %d", seed, step)
			require.True(t, c.Total().Equal(decimal.New(wantPaise, -2)),
				"seed %d step %d: total %s, want %d paise", seed, step, c.Total(), wantPaise)
		}
	}
}
