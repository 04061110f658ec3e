package schema

import "github.com/solatis/ordergate/internal/types"

// Relation names of the built-in logistics schema.
const (
	RelationOrder    = "Order"
	RelationProduct  = "Product"
	RelationCustomer = "Customer"
	RelationShipment = "Shipment"
)

// Builtin returns the logistics schema used by carrier assignment and order
// validation when no schema file is configured.
func Builtin() *Registry {
	r := NewRegistry()
	for _, desc := range builtinRelations() {
		// Static descriptors; a failure here is a programming error.
		if err := r.Register(desc); err != nil {
			panic(err)
		}
	}
	return r
}

func builtinRelations() []RelationDescriptor {
	return []RelationDescriptor{
		{
			Name: RelationOrder,
			Fields: []FieldDescriptor{
				{Key: "numero_commande", Type: types.ValueText},
				{Key: "statut", Type: types.ValueEnumerated, Options: []string{"en_attente", "validee", "en_preparation", "expediee", "livree", "annulee"}},
				{Key: "montant_total", Type: types.ValueNumber},
				{Key: "poids_total", Type: types.ValueNumber},
				{Key: "nombre_articles", Type: types.ValueNumber},
				{Key: "date_commande", Type: types.ValueDate},
				{Key: "pays_livraison", Type: types.ValueText},
				{Key: "code_postal", Type: types.ValueText},
				{Key: "ville_livraison", Type: types.ValueText},
				{Key: "mode_livraison", Type: types.ValueEnumerated, Options: []string{"standard", "express", "point_relais", "retrait_magasin"}},
				{Key: "canal", Type: types.ValueEnumerated, Options: []string{"site_web", "marketplace", "telephone", "magasin"}},
			},
		},
		{
			Name: RelationProduct,
			Fields: []FieldDescriptor{
				{Key: "sku", Type: types.ValueText},
				{Key: "nom", Type: types.ValueText},
				{Key: "categorie", Type: types.ValueEnumerated, Options: []string{"textile", "electronique", "alimentaire", "cosmetique", "mobilier", "autre"}},
				{Key: "poids", Type: types.ValueNumber},
				{Key: "prix", Type: types.ValueNumber},
				{Key: "stock", Type: types.ValueNumber},
				{Key: "fragile", Type: types.ValueEnumerated, Options: []string{"oui", "non"}},
				{Key: "matiere_dangereuse", Type: types.ValueEnumerated, Options: []string{"oui", "non"}},
			},
		},
		{
			Name: RelationCustomer,
			Fields: []FieldDescriptor{
				{Key: "email", Type: types.ValueText},
				{Key: "nom", Type: types.ValueText},
				{Key: "pays", Type: types.ValueText},
				{Key: "type_client", Type: types.ValueEnumerated, Options: []string{"particulier", "professionnel", "vip"}},
				{Key: "date_inscription", Type: types.ValueDate},
				{Key: "nombre_commandes", Type: types.ValueNumber},
				{Key: "montant_impaye", Type: types.ValueNumber},
			},
		},
		{
			Name: RelationShipment,
			Fields: []FieldDescriptor{
				{Key: "transporteur", Type: types.ValueText},
				{Key: "pays_destination", Type: types.ValueText},
				{Key: "poids", Type: types.ValueNumber},
				{Key: "nombre_colis", Type: types.ValueNumber},
				{Key: "date_expedition", Type: types.ValueDate},
				{Key: "statut", Type: types.ValueEnumerated, Options: []string{"en_preparation", "expedie", "en_transit", "livre", "incident"}},
			},
		},
	}
}
