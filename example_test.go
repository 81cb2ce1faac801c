package surrealrecord_test

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealrecord"
	"github.com/surrealdb/surrealrecord/internal/testenv"
	"github.com/surrealdb/surrealrecord/pkg/logger"
	"github.com/surrealdb/surrealrecord/pkg/models"
	"github.com/surrealdb/surrealrecord/pkg/store/memstore"
)

type Widget struct{}

func (Widget) ContainerID() models.ContainerID { return "catalog" }

func newCatalog() *memstore.Store {
	st := memstore.New()
	if _, err := st.Insert("catalog", 42, models.Fields{"NAME": "Widget", "SORT": 100},
		models.Properties{"COLOR": {"VALUE": "red"}}); err != nil {
		panic(err)
	}
	if _, err := st.Insert("catalog", 7, models.Fields{"NAME": "Bolt", "SORT": 300}, nil); err != nil {
		panic(err)
	}
	return st
}

func ExampleElement_Get() {
	ctx := context.Background()
	m := surrealrecord.NewModel(newCatalog(), Widget{})

	e, err := m.New(42, nil)
	if err != nil {
		panic(err)
	}

	fields, err := e.Get(ctx)
	if err != nil {
		panic(err)
	}

	fmt.Println(fields["NAME"], e.PropertyValue("COLOR"), e.Loaded())
	// Output: Widget red true
}

func ExampleElement_Save() {
	ctx := context.Background()
	log := logger.New(testenv.NewLogHandler())
	m := surrealrecord.NewModel(newCatalog(), Widget{}, surrealrecord.WithLogger(log))

	e, err := m.Find(ctx, 42)
	if err != nil {
		panic(err)
	}

	e.Set("NAME", "Gadget")
	e.Set("SORT", "")

	ok, err := e.Save(ctx, "NAME", "SORT")
	if err != nil {
		panic(err)
	}
	fmt.Println(ok)

	// Output:
	// [0] DEBUG: fetching element rid=catalog:42
	// [1] DEBUG: saving element rid=catalog:42, fields=[NAME], skipped=5
	// true
}

func ExampleModel_List() {
	ctx := context.Background()
	m := surrealrecord.NewModel(newCatalog(), Widget{})

	q, err := m.Query()
	if err != nil {
		panic(err)
	}

	elements, err := m.List(ctx, q.Filter(map[string]any{">SORT": 50}).Sort("SORT", "desc"))
	if err != nil {
		panic(err)
	}

	for _, e := range elements {
		fmt.Println(e.ID(), e.Fields()["NAME"])
	}
	// Output:
	// 7 Bolt
	// 42 Widget
}
