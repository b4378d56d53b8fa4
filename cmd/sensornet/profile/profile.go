package profile

import (
	"context"
	"errors"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	databaseName   = "sensornet"
	collectionName = "sensors"
)

// Store keeps the full sensor metadata documents. The id is assigned by the
// identity store, not by Mongo.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func Connect(ctx context.Context, uri string) (*Store, error) {
	connCtx, cncl := context.WithTimeout(ctx, 10*time.Second)
	defer cncl()
	client, err := mongo.Connect(connCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(connCtx, nil); err != nil {
		return nil, err
	}
	zap.S().Infof("Profile store connected to mongodb at %s", uri)
	return &Store{
		client:     client,
		collection: client.Database(databaseName).Collection(collectionName),
	}, nil
}

// document is the stored shape: the flat profile fields plus the derived
// GeoJSON point the 2dsphere index covers.
type document struct {
	ID              int64    `bson:"id"`
	Name            string   `bson:"name"`
	Type            string   `bson:"type"`
	Latitude        float64  `bson:"latitude"`
	Longitude       float64  `bson:"longitude"`
	MacAddress      string   `bson:"mac_address"`
	Manufacturer    string   `bson:"manufacturer"`
	Model           string   `bson:"model"`
	SerieNumber     string   `bson:"serie_number"`
	FirmwareVersion string   `bson:"firmware_version"`
	Description     string   `bson:"description"`
	Location        geoPoint `bson:"location"`
}

type geoPoint struct {
	Type string `bson:"type"`
	// GeoJSON order: longitude first, then latitude.
	Coordinates [2]float64 `bson:"coordinates"`
}

func (d document) profile() models.SensorProfile {
	return models.SensorProfile{
		ID:              d.ID,
		Name:            d.Name,
		Type:            d.Type,
		Latitude:        d.Location.Coordinates[1],
		Longitude:       d.Location.Coordinates[0],
		MacAddress:      d.MacAddress,
		Manufacturer:    d.Manufacturer,
		Model:           d.Model,
		SerieNumber:     d.SerieNumber,
		FirmwareVersion: d.FirmwareVersion,
		Description:     d.Description,
	}
}

func (s *Store) EnsureGeoIndex(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "location", Value: "2dsphere"}},
	})
	return err
}

func (s *Store) Insert(ctx context.Context, p models.SensorProfile) error {
	doc := document{
		ID:              p.ID,
		Name:            p.Name,
		Type:            p.Type,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		MacAddress:      p.MacAddress,
		Manufacturer:    p.Manufacturer,
		Model:           p.Model,
		SerieNumber:     p.SerieNumber,
		FirmwareVersion: p.FirmwareVersion,
		Description:     p.Description,
		Location: geoPoint{
			Type:        "Point",
			Coordinates: [2]float64{p.Longitude, p.Latitude},
		},
	}
	_, err := s.collection.InsertOne(ctx, doc)
	return err
}

func (s *Store) Get(ctx context.Context, id int64) (models.SensorProfile, bool, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SensorProfile{}, false, nil
	}
	if err != nil {
		return models.SensorProfile{}, false, err
	}
	return doc.profile(), true, nil
}

// FindWithinBox matches profiles whose coordinates fall inside the square
// [lat-radius, lat+radius] x [lon-radius, lon+radius]. This is the historical
// bounding-box behavior, not a great-circle radius.
func (s *Store) FindWithinBox(ctx context.Context, latitude, longitude, radius float64) (profiles []models.SensorProfile, err error) {
	filter := bson.M{
		"latitude":  bson.M{"$gte": latitude - radius, "$lte": latitude + radius},
		"longitude": bson.M{"$gte": longitude - radius, "$lte": longitude + radius},
	}
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	profiles = make([]models.SensorProfile, 0)
	for cursor.Next(ctx) {
		var doc document
		if err = cursor.Decode(&doc); err != nil {
			return nil, err
		}
		profiles = append(profiles, doc.profile())
	}
	return profiles, cursor.Err()
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"id": id})
	return err
}

func (s *Store) HealthCheck() healthcheck.Check {
	return func() error {
		ctx, cncl := context.WithTimeout(context.Background(), 5*time.Second)
		defer cncl()
		return s.client.Ping(ctx, nil)
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
