// Package metadata holds the records that declare controllers, routes and
// their enhancers. They are built explicitly at startup:
//
//	cats := metadata.NewController[*CatsController]("cats").
//	    UseGuards(metadata.Type[*guards.BearerToken]()).
//	    SetMetadata("roles", []string{"user"})
//
//	cats.Get("", "FindAll").Bind(metadata.Query("limit", pipes.DefaultValue("10"), pipes.ParseInt()))
//	cats.Get(":id", "FindOne").Bind(metadata.Path("id", pipes.ParseInt()))
//	cats.Post("", "Create").Bind(metadata.Body("", pipes.Validation[CreateCatDto]()))
//
// Enhancers (guards, pipes, interceptors, filters) are given as
// Descriptors: a type or constructor resolved through the container, a
// ready instance, or a per-request factory. Each is compiled once into a
// Producer when routes are registered.
package metadata
