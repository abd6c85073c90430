package unit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aescanero/datafabric/pkg/domain"
)

// FailureMode is one enumerated way a unit can fail, with its observable effect
type FailureMode struct {
	Code   string `json:"code"`
	Effect string `json:"effect"`
}

// Descriptor describes one execution unit: its identity, scheduling hints,
// the failure modes it may report and the degraded flags it may raise.
type Descriptor struct {
	Name           string                   `json:"name"`
	Ordinal        int                      `json:"ordinal"`
	CapabilityType string                   `json:"capability_type"`
	Description    string                   `json:"description"`
	Profile        domain.SchedulingProfile `json:"profile"`
	FailureModes   []FailureMode            `json:"failure_modes"`
	Flags          []Flag                   `json:"flags,omitempty"`
}

// FailureCodes returns the declared failure-mode codes in declaration order
func (d Descriptor) FailureCodes() []string {
	codes := make([]string, len(d.FailureModes))
	for i, m := range d.FailureModes {
		codes[i] = m.Code
	}
	return codes
}

// Declares reports whether code is one of the unit's failure modes
func (d Descriptor) Declares(code string) bool {
	for _, m := range d.FailureModes {
		if m.Code == code {
			return true
		}
	}
	return false
}

// Validate checks the rules every unit shares
func Validate(d Descriptor) error {
	if d.Name == "" {
		return errors.New("unit descriptor has no name")
	}
	if d.CapabilityType == "" {
		return fmt.Errorf("unit %s has no capability type", d.Name)
	}
	if len(d.FailureModes) == 0 {
		return fmt.Errorf("unit %s declares no failure modes", d.Name)
	}
	seen := make(map[string]bool, len(d.FailureModes))
	for _, m := range d.FailureModes {
		if m.Code == "" {
			return fmt.Errorf("unit %s has a failure mode without code", d.Name)
		}
		if m.Code == CodeUnclassified {
			return fmt.Errorf("unit %s redeclares reserved code %s", d.Name, CodeUnclassified)
		}
		if seen[m.Code] {
			return fmt.Errorf("unit %s declares failure mode %s twice", d.Name, m.Code)
		}
		seen[m.Code] = true
	}
	if !d.Profile.HasTag(domain.StatelessTag) {
		return fmt.Errorf("unit %s is not tagged %q", d.Name, domain.StatelessTag)
	}
	return nil
}

var byName = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(catalogue))
	for _, d := range catalogue {
		m[d.Name] = d
	}
	return m
}()

// Lookup returns the descriptor of the named unit
func Lookup(name string) (Descriptor, bool) {
	d, ok := byName[name]
	return d, ok
}

// All returns every descriptor ordered by ordinal
func All() []Descriptor {
	out := make([]Descriptor, len(catalogue))
	copy(out, catalogue)
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

// Names returns the unit names ordered by ordinal
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, d := range all {
		names[i] = d.Name
	}
	return names
}

var catalogue = []Descriptor{
	{
		Name:           "DataAssetRegistrar",
		Ordinal:        1,
		CapabilityType: "data-registration",
		Description:    "Writes data asset card to Registry.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "write-registry",
			Tags:         []string{"registry", "metadata", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "REGISTRY_UNAVAILABLE", Effect: "No registration occurs"},
			{Code: "INVALID_DECLARATION", Effect: "Rejected with validation error"},
			{Code: "DUPLICATE_CONFLICT", Effect: "Rejected with conflict indicator"},
			{Code: "AUTHORIZATION_DENIED", Effect: "Rejected with permission error"},
		},
	},
	{
		Name:           "ConnectionProbe",
		Ordinal:        2,
		CapabilityType: "connection-testing",
		Description:    "Tests connectivity to external data source.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "network-probe",
			Tags:         []string{"connection", "health", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "CREDENTIAL_UNAVAILABLE", Effect: "Cannot start"},
		},
	},
	{
		Name:           "SchemaIntrospector",
		Ordinal:        3,
		CapabilityType: "schema-discovery",
		Description:    "Extracts schema metadata from data source.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "read-external",
			Tags:         []string{"schema", "discovery", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "CONNECTION_FAILURE", Effect: "No schema returned"},
			{Code: "ACCESS_DENIED", Effect: "Rejected with permission error"},
			{Code: "SOURCE_NOT_FOUND", Effect: "Rejected with not-found error"},
		},
		Flags: []Flag{FlagTruncated},
	},
	{
		Name:           "DataExtractor",
		Ordinal:        4,
		CapabilityType: "data-extraction",
		Description:    "Reads data from source, writes to staging.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-medium",
			MemoryClass:  "medium",
			IOPattern:    "read-external-write-staging",
			Tags:         []string{"extraction", "ingestion", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "SOURCE_READ_FAILURE", Effect: "No data written"},
			{Code: "TARGET_WRITE_FAILURE", Effect: "No data persisted"},
			{Code: "QUOTA_EXCEEDED", Effect: "Not committed, bounds returned"},
			{Code: "FORMAT_ERROR", Effect: "Rejected"},
		},
	},
	{
		Name:           "DataWriter",
		Ordinal:        5,
		CapabilityType: "data-writing",
		Description:    "Writes staged data to target dataset.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-medium",
			MemoryClass:  "medium",
			IOPattern:    "read-staging-write-dataset",
			Tags:         []string{"write", "persistence", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "STAGING_READ_FAILURE", Effect: "No data written"},
			{Code: "TARGET_WRITE_FAILURE", Effect: "No data persisted"},
			{Code: "SCHEMA_MISMATCH", Effect: "Rejected"},
			{Code: "QUOTA_EXCEEDED", Effect: "Rejected"},
		},
	},
	{
		Name:           "TransformExecutor",
		Ordinal:        6,
		CapabilityType: "data-transformation",
		Description:    "Applies single transformation to input, produces output.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-large",
			MemoryClass:  "high",
			IOPattern:    "read-process-write",
			Tags:         []string{"transform", "processing", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "INPUT_READ_FAILURE", Effect: "No output"},
			{Code: "TRANSFORM_ERROR", Effect: "Rejected with details"},
			{Code: "OUTPUT_WRITE_FAILURE", Effect: "No output persisted"},
			{Code: "RESOURCE_EXHAUSTED", Effect: "Terminates, no partial"},
		},
	},
	{
		Name:           "DataJoiner",
		Ordinal:        7,
		CapabilityType: "data-joining",
		Description:    "Combines two inputs via join specification.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-large",
			MemoryClass:  "high",
			IOPattern:    "read-multi-write",
			Tags:         []string{"join", "merge", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "LEFT_INPUT_READ_FAILURE", Effect: "No output"},
			{Code: "RIGHT_INPUT_READ_FAILURE", Effect: "No output"},
			{Code: "KEY_MISMATCH", Effect: "Rejected"},
			{Code: "MEMORY_EXHAUSTED", Effect: "Terminates"},
			{Code: "OUTPUT_WRITE_FAILURE", Effect: "No output"},
		},
	},
	{
		Name:           "AggregationComputer",
		Ordinal:        8,
		CapabilityType: "data-aggregation",
		Description:    "Computes aggregates over grouped data.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-medium",
			MemoryClass:  "high",
			IOPattern:    "read-aggregate-write",
			Tags:         []string{"aggregation", "analytics", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "INPUT_READ_FAILURE", Effect: "No output"},
			{Code: "INVALID_AGGREGATION", Effect: "Rejected"},
			{Code: "MEMORY_EXHAUSTED", Effect: "Terminates"},
			{Code: "OUTPUT_WRITE_FAILURE", Effect: "No output"},
		},
	},
	{
		Name:           "FeatureComputer",
		Ordinal:        9,
		CapabilityType: "feature-computation",
		Description:    "Computes feature values for single feature definition.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-large",
			MemoryClass:  "high",
			IOPattern:    "read-compute-write",
			Tags:         []string{"feature", "ml", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "SOURCE_READ_FAILURE", Effect: "No features"},
			{Code: "DEFINITION_NOT_FOUND", Effect: "Rejected"},
			{Code: "COMPUTATION_ERROR", Effect: "Rejected"},
			{Code: "ENTITY_KEY_MISSING", Effect: "Rejected"},
			{Code: "OUTPUT_WRITE_FAILURE", Effect: "No features persisted"},
		},
	},
	{
		Name:           "FeatureStoreWriter",
		Ordinal:        10,
		CapabilityType: "feature-storage",
		Description:    "Writes feature values to store (offline/online).",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-medium",
			MemoryClass:  "medium",
			IOPattern:    "read-staging-write-store",
			Tags:         []string{"feature", "store", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "STAGING_READ_FAILURE", Effect: "No features written"},
			{Code: "STORE_WRITE_FAILURE", Effect: "No features persisted"},
			{Code: "TTL_INVALID", Effect: "Rejected"},
			{Code: "STORE_UNAVAILABLE", Effect: "Cannot proceed"},
		},
	},
	{
		Name:           "FeatureRetriever",
		Ordinal:        11,
		CapabilityType: "feature-retrieval",
		Description:    "Reads feature values for entities from store.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "read-store",
			Tags:         []string{"feature", "retrieval", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "STORE_READ_FAILURE", Effect: "No features returned"},
			{Code: "STORE_UNAVAILABLE", Effect: "Cannot proceed"},
		},
	},
	{
		Name:           "DataProfiler",
		Ordinal:        12,
		CapabilityType: "data-profiling",
		Description:    "Computes statistical profile and quality metrics.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-medium",
			MemoryClass:  "medium",
			IOPattern:    "read-analyze",
			Tags:         []string{"profiling", "quality", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "DATASET_READ_FAILURE", Effect: "No profile"},
			{Code: "INVALID_DATASET", Effect: "Rejected"},
			{Code: "PROFILE_TIMEOUT", Effect: "No partial profile"},
		},
		Flags: []Flag{FlagLowConfidence},
	},
	{
		Name:           "SchemaValidator",
		Ordinal:        13,
		CapabilityType: "schema-validation",
		Description:    "Validates dataset against expected schema.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "read-validate",
			Tags:         []string{"schema", "validation", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "DATASET_READ_FAILURE", Effect: "Inconclusive"},
			{Code: "SCHEMA_UNAVAILABLE", Effect: "Cannot proceed"},
			{Code: "TYPE_INFERENCE_FAILURE", Effect: "Inconclusive"},
		},
		Flags: []Flag{FlagInconclusive},
	},
	{
		Name:           "DataCommitter",
		Ordinal:        14,
		CapabilityType: "data-versioning",
		Description:    "Creates immutable commit record for dataset state.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "read-commit",
			Tags:         []string{"commit", "versioning", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "DATASET_READ_FAILURE", Effect: "No commit"},
			{Code: "PARENT_NOT_FOUND", Effect: "Rejected"},
			{Code: "COMMIT_STORAGE_FAILURE", Effect: "No commit persisted"},
		},
	},
	{
		Name:           "BranchCreator",
		Ordinal:        15,
		CapabilityType: "data-branching",
		Description:    "Creates branch record pointing to commit.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "write-registry",
			Tags:         []string{"branch", "versioning", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "COMMIT_NOT_FOUND", Effect: "Rejected"},
			{Code: "NAME_CONFLICT", Effect: "Rejected"},
			{Code: "REGISTRY_WRITE_FAILURE", Effect: "No branch"},
		},
	},
	{
		Name:           "MergeComputer",
		Ordinal:        16,
		CapabilityType: "data-merging",
		Description:    "Computes merge between two commits, identifies conflicts.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-medium",
			MemoryClass:  "medium",
			IOPattern:    "read-multi-compute",
			Tags:         []string{"merge", "versioning", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "SOURCE_NOT_FOUND", Effect: "Rejected"},
			{Code: "TARGET_NOT_FOUND", Effect: "Rejected"},
			{Code: "COMMIT_READ_FAILURE", Effect: "No merge"},
			{Code: "NO_COMMON_ANCESTOR", Effect: "Rejected"},
		},
	},
	{
		Name:           "DataReplicator",
		Ordinal:        17,
		CapabilityType: "data-replication",
		Description:    "Copies data from source to target storage location.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-medium",
			MemoryClass:  "medium",
			IOPattern:    "read-write-remote",
			Tags:         []string{"replication", "locality", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "SOURCE_READ_FAILURE", Effect: "No replication"},
			{Code: "TARGET_WRITE_FAILURE", Effect: "No data persisted"},
			{Code: "CHECKSUM_MISMATCH", Effect: "Failed, no partial"},
			{Code: "NETWORK_FAILURE", Effect: "Terminates"},
		},
	},
	{
		Name:           "LocalitySignalGenerator",
		Ordinal:        18,
		CapabilityType: "locality-signaling",
		Description:    "Produces locality signals for data asset.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "read-probe",
			Tags:         []string{"locality", "scheduling", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "ASSET_NOT_FOUND", Effect: "Rejected"},
			{Code: "PROBE_TIMEOUT", Effect: "Stale indicator"},
		},
		Flags: []Flag{FlagStaleSignals},
	},
	{
		Name:           "LabelTaskCreator",
		Ordinal:        19,
		CapabilityType: "labeling-task",
		Description:    "Creates label task record.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "write-registry",
			Tags:         []string{"labeling", "task", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "DATASET_NOT_FOUND", Effect: "Rejected"},
			{Code: "SCHEMA_INVALID", Effect: "Rejected"},
			{Code: "EMPTY_SELECTION", Effect: "Rejected"},
			{Code: "REGISTRY_FAILURE", Effect: "No task"},
		},
	},
	{
		Name:           "LabelRecorder",
		Ordinal:        20,
		CapabilityType: "label-recording",
		Description:    "Records single label annotation.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "write-store",
			Tags:         []string{"labeling", "annotation", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "TASK_NOT_FOUND", Effect: "Rejected"},
			{Code: "SAMPLE_NOT_IN_TASK", Effect: "Rejected"},
			{Code: "SCHEMA_VIOLATION", Effect: "Rejected"},
			{Code: "STORAGE_FAILURE", Effect: "No annotation"},
		},
	},
	{
		Name:           "LineageEdgeWriter",
		Ordinal:        21,
		CapabilityType: "lineage-recording",
		Description:    "Records lineage relationship between assets.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-small",
			MemoryClass:  "low",
			IOPattern:    "write-registry",
			Tags:         []string{"lineage", "provenance", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "SOURCE_NOT_FOUND", Effect: "Rejected"},
			{Code: "TARGET_NOT_FOUND", Effect: "Rejected"},
			{Code: "REGISTRY_FAILURE", Effect: "No edge"},
		},
	},
	{
		Name:           "QualityGateEvaluator",
		Ordinal:        22,
		CapabilityType: "quality-evaluation",
		Description:    "Evaluates data against quality threshold.",
		Profile: domain.SchedulingProfile{
			ComputeClass: "cpu-medium",
			MemoryClass:  "medium",
			IOPattern:    "read-evaluate",
			Tags:         []string{"quality", "gate", "stateless"},
		},
		FailureModes: []FailureMode{
			{Code: "DATASET_READ_FAILURE", Effect: "Inconclusive"},
			{Code: "RULES_INVALID", Effect: "Rejected"},
			{Code: "EVALUATION_TIMEOUT", Effect: "Inconclusive"},
		},
		Flags: []Flag{FlagInconclusive},
	},
}
