package costmodel

const (
	// I/O cost parameters
	IoCostPerPage        = 1000.0 // Cost of reading one page from disk
	DefaultTuplesPerPage = 4096.0 // Tuples read per page by a sequential scan

	// CPU cost parameters
	CPUCostPerTuple    = 0.01 // Cost of processing one tuple
	ImputeCostPerValue = 1.0  // Multiplier on CPUCostPerTuple for each imputed value

	// LossFactor discounts imputation loss geometrically with the amount of
	// data the imputation model learns from.
	LossFactor = 1.01

	// JoinSelectivity applies to equality joins without key information.
	JoinSelectivity = 0.3
)
