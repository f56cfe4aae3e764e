package problem

import "github.com/strongfeels/bitbattle/internal/domain"

// intPtr небольшой хелпер для компактных литералов ниже
func intPtr(v int) *int { return &v }

// staticProblems - компилируемый в бинарь набор задач. В отличие от AI-пула,
// у статических задач нет таблицы в БД: они данные, а не схема, и правятся
// только через пересборку.
var staticProblems = []domain.Problem{
	{
		ID:          "two-sum",
		Title:       "Two Sum",
		Description: "Дан массив целых чисел nums и целое число target. Верните индексы двух чисел так, чтобы их сумма была равна target. Каждый вход имеет ровно одно решение, один и тот же элемент нельзя использовать дважды.",
		Difficulty:  domain.DifficultyEasy,
		Examples: []domain.Example{
			{Input: "nums = [2,7,11,15], target = 9", ExpectedOutput: "[0,1]", Explanation: "nums[0] + nums[1] == 9"},
			{Input: "nums = [3,2,4], target = 6", ExpectedOutput: "[1,2]"},
		},
		TestCases: []domain.TestCase{
			{Input: "[2,7,11,15]\n9", ExpectedOutput: "[0,1]"},
			{Input: "[3,2,4]\n6", ExpectedOutput: "[1,2]"},
			{Input: "[3,3]\n6", ExpectedOutput: "[0,1]"},
		},
		StarterCode: map[string]string{
			"javascript": "function twoSum(nums, target) {\n  // ваш код\n}\n",
			"python":     "def two_sum(nums, target):\n    # ваш код\n    pass\n",
			"go":         "package main\n\nfunc twoSum(nums []int, target int) []int {\n\t// ваш код\n\treturn nil\n}\n",
		},
		TimeLimitMin: intPtr(10),
		Tags:         []string{"array", "hash-table"},
	},
	{
		ID:          "valid-parentheses",
		Title:       "Valid Parentheses",
		Description: "Дана строка, состоящая только из символов '(', ')', '{', '}', '[' и ']'. Определите, является ли входная строка правильной: скобки закрыты в верном порядке и того же типа.",
		Difficulty:  domain.DifficultyEasy,
		Examples: []domain.Example{
			{Input: "()", ExpectedOutput: "true"},
			{Input: "()[]{}", ExpectedOutput: "true"},
			{Input: "(]", ExpectedOutput: "false"},
		},
		TestCases: []domain.TestCase{
			{Input: "()", ExpectedOutput: "true"},
			{Input: "([)]", ExpectedOutput: "false"},
			{Input: "{[]}", ExpectedOutput: "true"},
		},
		StarterCode: map[string]string{
			"javascript": "function isValid(s) {\n  // ваш код\n}\n",
			"python":     "def is_valid(s):\n    # ваш код\n    pass\n",
			"go":         "package main\n\nfunc isValid(s string) bool {\n\t// ваш код\n\treturn false\n}\n",
		},
		TimeLimitMin: intPtr(10),
		Tags:         []string{"stack", "string"},
	},
	{
		ID:          "maximum-subarray",
		Title:       "Maximum Subarray",
		Description: "Дан целочисленный массив nums. Найдите непустой непрерывный подмассив с наибольшей суммой и верните эту сумму.",
		Difficulty:  domain.DifficultyMedium,
		Examples: []domain.Example{
			{Input: "nums = [-2,1,-3,4,-1,2,1,-5,4]", ExpectedOutput: "6", Explanation: "[4,-1,2,1] даёт сумму 6"},
		},
		TestCases: []domain.TestCase{
			{Input: "[-2,1,-3,4,-1,2,1,-5,4]", ExpectedOutput: "6"},
			{Input: "[1]", ExpectedOutput: "1"},
			{Input: "[5,4,-1,7,8]", ExpectedOutput: "23"},
		},
		StarterCode: map[string]string{
			"javascript": "function maxSubArray(nums) {\n  // ваш код\n}\n",
			"python":     "def max_sub_array(nums):\n    # ваш код\n    pass\n",
			"go":         "package main\n\nfunc maxSubArray(nums []int) int {\n\t// ваш код\n\treturn 0\n}\n",
		},
		TimeLimitMin: intPtr(20),
		Tags:         []string{"array", "divide-and-conquer", "dynamic-programming"},
	},
	{
		ID:          "group-anagrams",
		Title:       "Group Anagrams",
		Description: "Дан массив строк. Сгруппируйте анаграммы вместе. Порядок групп и порядок строк внутри группы не важны при печати канонической формы (отсортированных групп).",
		Difficulty:  domain.DifficultyMedium,
		Examples: []domain.Example{
			{Input: `strs = ["eat","tea","tan","ate","nat","bat"]`, ExpectedOutput: `[["ate","eat","tea"],["bat"],["nat","tan"]]`},
		},
		TestCases: []domain.TestCase{
			{Input: `["eat","tea","tan","ate","nat","bat"]`, ExpectedOutput: `[["ate","eat","tea"],["bat"],["nat","tan"]]`},
			{Input: `[""]`, ExpectedOutput: `[[""]]`},
		},
		StarterCode: map[string]string{
			"javascript": "function groupAnagrams(strs) {\n  // ваш код\n}\n",
			"python":     "def group_anagrams(strs):\n    # ваш код\n    pass\n",
		},
		TimeLimitMin: intPtr(20),
		Tags:         []string{"array", "hash-table", "string", "sorting"},
	},
	{
		ID:          "trapping-rain-water",
		Title:       "Trapping Rain Water",
		Description: "Дан массив неотрицательных чисел, изображающий высоты столбцов карты высот шириной 1 каждый. Посчитайте, сколько воды способна удержать эта карта после дождя.",
		Difficulty:  domain.DifficultyHard,
		Examples: []domain.Example{
			{Input: "height = [0,1,0,2,1,0,1,3,2,1,2,1]", ExpectedOutput: "6"},
		},
		TestCases: []domain.TestCase{
			{Input: "[0,1,0,2,1,0,1,3,2,1,2,1]", ExpectedOutput: "6"},
			{Input: "[4,2,0,3,2,5]", ExpectedOutput: "9"},
			{Input: "[]", ExpectedOutput: "0"},
		},
		StarterCode: map[string]string{
			"javascript": "function trap(height) {\n  // ваш код\n}\n",
			"python":     "def trap(height):\n    # ваш код\n    pass\n",
			"go":         "package main\n\nfunc trap(height []int) int {\n\t// ваш код\n\treturn 0\n}\n",
		},
		TimeLimitMin: intPtr(35),
		Tags:         []string{"array", "two-pointers", "dynamic-programming", "stack"},
	},
	{
		ID:          "median-two-sorted-arrays",
		Title:       "Median of Two Sorted Arrays",
		Description: "Даны два отсортированных массива nums1 и nums2 размеров m и n. Верните медиану двух отсортированных массивов. Ожидаемая сложность O(log(m+n)).",
		Difficulty:  domain.DifficultyHard,
		Examples: []domain.Example{
			{Input: "nums1 = [1,3], nums2 = [2]", ExpectedOutput: "2.0"},
			{Input: "nums1 = [1,2], nums2 = [3,4]", ExpectedOutput: "2.5"},
		},
		TestCases: []domain.TestCase{
			{Input: "[1,3]\n[2]", ExpectedOutput: "2.0"},
			{Input: "[1,2]\n[3,4]", ExpectedOutput: "2.5"},
			{Input: "[]\n[1]", ExpectedOutput: "1.0"},
		},
		StarterCode: map[string]string{
			"python": "def find_median_sorted_arrays(nums1, nums2):\n    # ваш код\n    pass\n",
			"go":     "package main\n\nfunc findMedianSortedArrays(nums1, nums2 []int) float64 {\n\t// ваш код\n\treturn 0\n}\n",
		},
		TimeLimitMin: intPtr(35),
		Tags:         []string{"array", "binary-search", "divide-and-conquer"},
	},
}
