/*
Package frame registers frame types and precomputes everything the scheduler
needs to know about them.

Registration is the only place where struct tags are inspected. The resulting
Type carries the field classification table, the routing variant, the reflected
schema description and, for every declared field type, its nominal ancestor
list. Runtime code reads these tables and never reflects over tags again.

A frame is a plain Go struct:

	type Begin struct {
		Name     string `json:"name" frame:"input"`
		Weather  string `json:"weather" frame:"dep:fetchWeather"`
		Greeting string `json:"greeting" hint:"greet the user, mention the weather"`
	}

Fields without a resolution annotation are plain and left for the filler.
*/
package frame
