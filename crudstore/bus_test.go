package crudstore

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

type Bus struct {
	ID       uuid.UUID `json:"id"`
	Model    string    `json:"model"`
	Capacity int       `json:"capacity"`
	Price    float64   `json:"price"`
}

func (b *Bus) GetID() uuid.UUID {
	return b.ID
}

func (b *Bus) SetID(id uuid.UUID) {
	b.ID = id
}

func cloneBus(b *Bus) *Bus {
	res := *b
	return &res
}

var busModels = []string{"Volvo", "Mercedes", "Scania", "MAN", "Ikarus"}

// newRandomBus returns a bus with random model, capacity in [20, 60]
// and price in [50000, 250000). Id is left for the store to assign.
func newRandomBus(rnd *rand.Rand) *Bus {
	price := rnd.Float64()*200_000 + 50_000
	return &Bus{
		Model:    busModels[rnd.Intn(len(busModels))],
		Capacity: 20 + rnd.Intn(41),
		Price:    math.Round(price*100) / 100,
	}
}

func newBusWithID(model string) *Bus {
	return &Bus{
		ID:    uuid.New(),
		Model: model,
	}
}

// record with value receivers, can't have id assigned by the store
type tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (t tag) GetID() uuid.UUID {
	return t.ID
}

func models(buses []*Bus) []string {
	var res []string
	for _, b := range buses {
		res = append(res, b.Model)
	}
	return res
}
