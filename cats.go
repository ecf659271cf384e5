package main

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/km-arc/go-dispatch/framework/exceptions"
	"github.com/km-arc/go-dispatch/framework/guards"
	"github.com/km-arc/go-dispatch/framework/http/validation"
	"github.com/km-arc/go-dispatch/framework/metadata"
	"github.com/km-arc/go-dispatch/framework/module"
	"github.com/km-arc/go-dispatch/framework/pipes"
)

// ── Service ──────────────────────────────────────────────────────────────────

type Cat struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Breed string `json:"breed,omitempty"`
}

type CreateCat struct {
	Name  string `json:"name" validate:"required,min=2,max=50"`
	Age   int    `json:"age" validate:"gte=0,lte=30"`
	Breed string `json:"breed,omitempty" validate:"omitempty,alpha"`
}

type CatsService struct {
	mu     sync.RWMutex
	nextID int
	cats   []Cat
}

func NewCatsService() *CatsService { return &CatsService{nextID: 1} }

func (s *CatsService) OnModuleInit(context.Context) error {
	s.Create(CreateCat{Name: "Tom", Age: 3})
	return nil
}

func (s *CatsService) List(limit int) []Cat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cats[:min(limit, len(s.cats))])
}

func (s *CatsService) Find(id int) (Cat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.cats, func(c Cat) bool { return c.ID == id })
	if i < 0 {
		return Cat{}, false
	}
	return s.cats[i], true
}

func (s *CatsService) Create(in CreateCat) Cat {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat := Cat{ID: s.nextID, Name: in.Name, Age: in.Age, Breed: in.Breed}
	s.nextID++
	s.cats = append(s.cats, cat)
	return cat
}

func (s *CatsService) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.cats)
	s.cats = slices.DeleteFunc(s.cats, func(c Cat) bool { return c.ID == id })
	return len(s.cats) != n
}

// ── Controller ───────────────────────────────────────────────────────────────

type CatsController struct {
	Cats *CatsService `inject:""`
}

func (c *CatsController) FindAll(limit int) []Cat { return c.Cats.List(limit) }

func (c *CatsController) FindOne(id int) (Cat, error) {
	cat, ok := c.Cats.Find(id)
	if !ok {
		return Cat{}, exceptions.NotFound("Cat not found")
	}
	return cat, nil
}

func (c *CatsController) Create(in CreateCat) Cat { return c.Cats.Create(in) }

func (c *CatsController) Remove(id int) error {
	if !c.Cats.Delete(id) {
		return exceptions.NotFound("Cat not found")
	}
	return nil
}

func (c *CatsController) Me(subject any) map[string]any {
	return map[string]any{"sub": subject}
}

// CatsModule wires the cats feature. Mutations require a JWT signed with
// secret; deletion additionally requires the "admin" role.
func CatsModule(secret []byte) *module.Module {
	ctrl := metadata.NewController[*CatsController]("cats")

	ctrl.Get("/", "FindAll").
		Bind(metadata.Query("limit", pipes.DefaultValue("20"), pipes.Rules(validation.Rules{"limit": "integer|gte:1|lte:100"}), pipes.ParseInt()))
	ctrl.Get("/me", "Me").
		UseGuards(guards.JWT(secret)).
		Bind(metadata.Custom(guards.CurrentUser, "sub"))
	ctrl.Get("/:id", "FindOne").
		Bind(metadata.Path("id", pipes.ParseInt()))
	ctrl.Post("/", "Create").
		UseGuards(guards.JWT(secret)).
		Bind(metadata.Body("", pipes.Trim(), pipes.Validation[CreateCat]()))
	ctrl.Delete("/:id", "Remove").
		UseGuards(guards.JWT(secret), guards.Roles()).
		SetMetadata(guards.RolesKey, []string{"admin"}).
		HTTPCode(http.StatusNoContent).
		Bind(metadata.Path("id", pipes.ParseInt()))

	return &module.Module{
		Name:        "cats",
		Providers:   []module.Provider{module.Class(NewCatsService)},
		Controllers: []*metadata.Controller{ctrl},
	}
}
