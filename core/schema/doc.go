/*
Package schema defines the model-configuration document and its loader.

The document declares, per app-qualified model, how that model is
exposed through the generated administrative REST API. A minimal
document in YAML:

	models:
	  auth.user:
	    prefix: users
	    search: username, groups__name
	    filters: is_active, groups
	    ordering: username
	    fieldsets:
	      dados_gerais: username, email, first_name, last_name
	    list:
	      fields: [id, username, email, is_active]
	      actions:
	        somar: realizar_soma
	    view:
	      fields: [id, username, email]
	      actions:
	        subtrair: realizar_subtracao

	  pnp.programa:
	    prefix: programas

# Model keys

Every model is keyed by "<app>.<model>", lowercase and dot-separated.
The key identifies the model in the external data layer; the document
never defines the model's fields itself.

# Prefixes

Each model mounts its generated endpoints under "/<prefix>/". Prefixes
must be unique across the document; a collision is a load-time error.

# Field lists

search, filters, ordering, fieldset values, and list/view fields are
ordered field-name lists. They may be written either as YAML sequences
or as comma-separated scalars; both forms parse to the same value and
marshal back as sequences. Related fields are reached with the
double-underscore path syntax (groups__name).

# Actions

list.actions and view.actions map an action name (the URL segment) to
the identifier of a registered handler. Handlers live in the actions
registry; an unknown identifier fails at dispatch time, not at load.

# Parsing

	doc, err := schema.ParseFile("api.yml")
	doc, err := schema.Parse(data)

Documents are validated on parse: a missing models mapping, a model
without a prefix, a key that is not "<app>.<model>", or YAML that does
not parse yields a *MalformedError; duplicate prefixes yield a
*PrefixConflictError. Field references are not resolved at load time;
they surface at request time in the serving layer.
*/
package schema
